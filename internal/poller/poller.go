// Package poller requests status updates from the review API.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"statusbot/internal/review"
	logx "statusbot/pkg/logx"
)

const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

type Config struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
}

// Client issues exactly one request per Fetch. It never retries; the caller
// decides when to ask again.
type Client struct {
	cfg  Config
	http *resty.Client
	log  logx.Logger
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("status API token is empty")
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	hc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", "OAuth "+cfg.Token)

	return &Client{cfg: cfg, http: hc, log: log}, nil
}

// Fetch requests updates since watermark and returns the decoded, unvalidated body.
func (c *Client) Fetch(ctx context.Context, watermark review.Watermark) (any, error) {
	if watermark < 0 {
		return nil, &review.Error{Kind: review.KindInvalidWatermark, Msg: "Метка времени запроса не может быть отрицательной: " + strconv.FormatInt(int64(watermark), 10)}
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("from_date", strconv.FormatInt(int64(watermark), 10)).
		Get(c.cfg.Endpoint)
	if err != nil {
		return nil, review.UpstreamTransport(err)
	}
	c.log.Debug("status API responded",
		logx.Int("status", resp.StatusCode()),
		logx.Int64("from_date", int64(watermark)),
		logx.Duration("took", time.Since(start)),
	)
	if resp.StatusCode() != http.StatusOK {
		return nil, review.Upstream(resp.StatusCode())
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body()))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return nil, &review.Error{Kind: review.KindMalformedShape, Msg: "Ответ API не является корректным JSON", Err: err}
	}
	return body, nil
}
