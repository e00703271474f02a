package registry

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dsocial118/SISOC-sub000/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// person is the registry's view of a beneficiary.
type person struct {
	ID             string `json:"id"`
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	BirthDate      string `json:"birth_date"`
}

type errorBody struct {
	Message string `json:"message"`
}

// Client looks beneficiaries up in the external registry by document key.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Accept", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}
	// only transport failures and 5xx are retried
	c.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	})
	return &Client{httpClient: c, logger: logger}
}

// Lookup returns the registry record of the document key, or a NotFound error.
func (c *Client) Lookup(ctx context.Context, docType, docNumber string) (*domain.Beneficiary, error) {
	var p person
	var apiErr errorBody
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"document_type": docType, "document_number": docNumber}).
		SetResult(&p).
		SetError(&apiErr).
		Get("/beneficiaries/lookup")
	if err != nil {
		return nil, fmt.Errorf("registry lookup: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, domain.NotFoundf("registry has no %s %s", docType, docNumber)
	case resp.IsError():
		c.logger.Warn("Registry returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("msg", apiErr.Message),
		)
		return nil, fmt.Errorf("registry lookup: status %d: %s", resp.StatusCode(), apiErr.Message)
	}

	b := &domain.Beneficiary{
		ID:             p.ID,
		DocumentType:   docType,
		DocumentNumber: docNumber,
		FirstName:      strings.TrimSpace(p.FirstName),
		LastName:       strings.TrimSpace(p.LastName),
		Active:         true,
	}
	if p.BirthDate != "" {
		t, err := time.Parse(time.DateOnly, p.BirthDate)
		if err != nil {
			return nil, fmt.Errorf("registry birth_date %q: %w", p.BirthDate, err)
		}
		b.BirthDate = &t
	}
	return b, nil
}
