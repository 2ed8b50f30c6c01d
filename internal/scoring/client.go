// Package scoring calls the external risk-scoring service. The scorer is an
// optional collaborator: any transport fault, timeout, non-200, or
// undecodable response degrades to a safe fallback verdict instead of an
// error, so a scorer outage never breaks callers.
package scoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// PredictionSafe is the fallback prediction when the scorer is unreachable.
const PredictionSafe = "SAFE"

// Request is the scorer's input: one transaction id plus its feature map.
type Request struct {
	TransactionID string             `json:"transactionId"`
	Features      map[string]float64 `json:"features"`
}

// Verdict is the scorer's output. Fallback marks verdicts synthesized
// locally because the scorer could not be reached.
type Verdict struct {
	TransactionID string  `json:"transactionId"`
	RiskScore     float64 `json:"riskScore"`
	Prediction    string  `json:"prediction"`
	Confidence    float64 `json:"confidence"`
	Fallback      bool    `json:"fallback,omitempty"`
}

// Client scores transactions against a remote model service.
type Client struct {
	http *resty.Client
	log  *slog.Logger
}

// New builds a client for the scorer at baseURL. Retries are limited so a
// flapping scorer delays callers at most retries*timeout.
func New(baseURL string, timeout time.Duration, retries int, log *slog.Logger) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetHeader("Content-Type", "application/json")
	return &Client{http: c, log: log}
}

// Score asks the scorer for a verdict on one transaction. It never returns
// an error; unreachable or misbehaving scorers yield the fallback verdict.
func (c *Client) Score(ctx context.Context, req Request) Verdict {
	var verdict Verdict
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&verdict).
		Post("/predict")
	if err != nil {
		c.log.WarnContext(ctx, "scorer unreachable, using fallback verdict",
			"transaction_id", req.TransactionID,
			"error", err,
		)
		return c.fallback(req.TransactionID)
	}
	if resp.StatusCode() != 200 {
		c.log.WarnContext(ctx, "scorer returned non-200, using fallback verdict",
			"transaction_id", req.TransactionID,
			"status", resp.StatusCode(),
		)
		return c.fallback(req.TransactionID)
	}
	// A 200 the client could not decode (wrong content type, empty body)
	// leaves the verdict zero-valued. Callers get the fallback, not an empty
	// prediction.
	if verdict.Prediction == "" {
		c.log.WarnContext(ctx, "scorer response missing prediction, using fallback verdict",
			"transaction_id", req.TransactionID,
		)
		return c.fallback(req.TransactionID)
	}
	verdict.TransactionID = req.TransactionID
	return verdict
}

func (c *Client) fallback(transactionID string) Verdict {
	return Verdict{
		TransactionID: transactionID,
		Prediction:    PredictionSafe,
		Fallback:      true,
	}
}
