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

// Add enqueues a new download job.
func (c *Client) Add(req AddRequest) (*AddResponse, error) {
	var resp AddResponse
	if err := c.client.Call("Spool.Add", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList returns queue jobs, optionally filtered by user and statuses.
func (c *Client) QueueList(userID string, statuses []string) (*QueueListResponse, error) {
	var resp QueueListResponse
	req := QueueListRequest{UserID: userID, Statuses: statuses}
	if err := c.client.Call("Spool.QueueList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueDescribe returns details for a single job.
func (c *Client) QueueDescribe(id string) (*QueueDescribeResponse, error) {
	var resp QueueDescribeResponse
	if err := c.client.Call("Spool.QueueDescribe", QueueDescribeRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start schedules a queued job for download.
func (c *Client) Start(id string) (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Spool.Start", StartRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartQueued schedules every queued job for a user.
func (c *Client) StartQueued(userID string) (*StartQueuedResponse, error) {
	var resp StartQueuedResponse
	if err := c.client.Call("Spool.StartQueued", StartQueuedRequest{UserID: userID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Promote moves a detected job into the queue.
func (c *Client) Promote(id string, autoStart bool) (*PromoteResponse, error) {
	var resp PromoteResponse
	if err := c.client.Call("Spool.Promote", PromoteRequest{ID: id, AutoStart: autoStart}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel cancels an active job.
func (c *Client) Cancel(id string) (*CancelResponse, error) {
	var resp CancelResponse
	if err := c.client.Call("Spool.Cancel", CancelRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Remove removes a job and its downloaded file.
func (c *Client) Remove(id string) (*RemoveResponse, error) {
	var resp RemoveResponse
	if err := c.client.Call("Spool.Remove", RemoveRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClearCompleted removes completed jobs.
func (c *Client) QueueClearCompleted() (*QueueClearCompletedResponse, error) {
	var resp QueueClearCompletedResponse
	if err := c.client.Call("Spool.QueueClearCompleted", QueueClearCompletedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClearFailed removes failed jobs.
func (c *Client) QueueClearFailed() (*QueueClearFailedResponse, error) {
	var resp QueueClearFailedResponse
	if err := c.client.Call("Spool.QueueClearFailed", QueueClearFailedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reload reconciles the daemon registry against the store.
func (c *Client) Reload(userID string) (*ReloadResponse, error) {
	var resp ReloadResponse
	if err := c.client.Call("Spool.Reload", ReloadRequest{UserID: userID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Spool.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("Spool.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Spool.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
