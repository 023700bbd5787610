package callwatch

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Client is an HTTP source over the live CallWatch table. When PageParam is
// set the table is paginated and pages are fetched until one comes back empty;
// otherwise a single snapshot fetch exhausts the source.
type Client struct {
	URL       string
	PageParam string
	Columns   Columns
	MaxRows   int
	HTTP      *http.Client

	page  int
	total int
	buf   []Row
	done  bool
}

func NewClient(rawURL string, cols Columns, maxRows int, timeout time.Duration) *Client {
	return &Client{
		URL:     rawURL,
		Columns: cols,
		MaxRows: maxRows,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Next(ctx context.Context) (Row, error) {
	for len(c.buf) == 0 && !c.done {
		if err := c.fetchNextPage(ctx); err != nil {
			return Row{}, err
		}
	}
	if len(c.buf) == 0 {
		return Row{}, ErrNoMoreRows
	}
	row := c.buf[0]
	c.buf = c.buf[1:]
	c.total++
	if c.MaxRows > 0 && c.total >= c.MaxRows {
		c.done = true
		c.buf = nil
	}
	return row, nil
}

func (c *Client) fetchNextPage(ctx context.Context) error {
	c.page++
	rows, err := c.fetchPage(ctx, c.page)
	if err != nil {
		// One retry, mirroring the upstream table re-rendering mid-read.
		rows, err = c.fetchPage(ctx, c.page)
	}
	if err != nil {
		c.done = true
		if c.page == 1 {
			return fmt.Errorf("unable to access %s: %w", c.URL, err)
		}
		log.Printf("WARN: page %d fetch failed after retry, treating as end of rows: %v", c.page, err)
		return nil
	}
	if len(rows) == 0 || c.PageParam == "" {
		c.done = true
	}
	c.buf = rows
	return nil
}

func (c *Client) fetchPage(ctx context.Context, page int) ([]Row, error) {
	endpoint := c.URL
	if c.PageParam != "" {
		u, err := url.Parse(c.URL)
		if err != nil {
			return nil, err
		}
		q := u.Query()
		q.Set(c.PageParam, fmt.Sprint(page))
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("callwatch status %d", resp.StatusCode)
	}
	return parseTable(resp.Body, c.Columns, 0)
}
