package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Replayrig.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Play starts a session for an explicit file list.
func (c *Client) Play(req PlayRequest) (*PlayResponse, error) {
	var resp PlayResponse
	if err := c.client.Call("Replayrig.Play", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PlayPending starts a session from the persisted pending queue.
func (c *Client) PlayPending(req PlayPendingRequest) (*PlayResponse, error) {
	var resp PlayResponse
	if err := c.client.Call("Replayrig.PlayPending", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopSession tears down the active playback session.
func (c *Client) StopSession() (*StopSessionResponse, error) {
	var resp StopSessionResponse
	if err := c.client.Call("Replayrig.StopSession", StopSessionRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.client.Call("Replayrig.Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueAdd appends replay files to the pending queue.
func (c *Client) QueueAdd(paths []string) (*QueueAddResponse, error) {
	var resp QueueAddResponse
	if err := c.client.Call("Replayrig.QueueAdd", QueueAddRequest{Paths: paths}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList returns the pending queue in position order.
func (c *Client) QueueList() (*QueueListResponse, error) {
	var resp QueueListResponse
	if err := c.client.Call("Replayrig.QueueList", QueueListRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRemove deletes one pending entry.
func (c *Client) QueueRemove(id int64) (*QueueRemoveResponse, error) {
	var resp QueueRemoveResponse
	if err := c.client.Call("Replayrig.QueueRemove", QueueRemoveRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClear empties the pending queue.
func (c *Client) QueueClear() (*QueueClearResponse, error) {
	var resp QueueClearResponse
	if err := c.client.Call("Replayrig.QueueClear", QueueClearRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Export writes the pending queue to a descriptor file.
func (c *Client) Export(req ExportRequest) (*ExportResponse, error) {
	var resp ExportResponse
	if err := c.client.Call("Replayrig.Export", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Replayrig.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Replayrig.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
