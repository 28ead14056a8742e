// Package services defines the error taxonomy shared by daemon components.
// Sentinel markers classify failures so callers can distinguish recoverable
// device errors from validation and configuration problems.
package services
