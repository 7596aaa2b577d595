package main

import (
	"context"
	"fmt"
	"time"

	"commodity-sim-go/internal/models"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// apiClient is a small client for the simulator server's JSON API.
type apiClient struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
}

func newAPIClient(baseURL string, logger *zap.Logger) *apiClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")

	return &apiClient{
		client:  client,
		logger:  logger.Named("api-client"),
		limiter: rate.NewLimiter(rate.Limit(10), 5),
	}
}

func (c *apiClient) do(method, path string, body any, result any, query map[string]string) error {
	if err := c.limiter.Wait(context.Background()); err != nil {
		return err
	}

	req := c.client.R().SetResult(result)
	if body != nil {
		req.SetBody(body)
	}
	if query != nil {
		req.SetQueryParams(query)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Error("Request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	if resp.IsError() {
		c.logger.Debug("Server rejected request",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("status", resp.Status()))
		return fmt.Errorf("server rejected %s: %s (%s)", path, resp.Status(), resp.String())
	}
	return nil
}

type loginResult struct {
	SessionID string  `json:"session_id"`
	Username  string  `json:"username"`
	Balance   float64 `json:"balance"`
}

func (c *apiClient) Login(username string, resume bool) (*loginResult, error) {
	var out loginResult
	body := map[string]any{"username": username, "resume": resume}
	if err := c.do("POST", "/api/login", body, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) Logout(sessionID string) error {
	body := map[string]string{"session_id": sessionID}
	return c.do("POST", "/api/logout", body, &map[string]string{}, nil)
}

func (c *apiClient) Trade(kind, sessionID, instrument string, quantity float64) (*models.Transaction, error) {
	var out models.Transaction
	body := map[string]any{
		"session_id": sessionID,
		"instrument": instrument,
		"quantity":   quantity,
	}
	if err := c.do("POST", "/api/"+kind, body, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

type priceResult struct {
	Instrument string  `json:"instrument"`
	Price      float64 `json:"price"`
}

func (c *apiClient) Price(instrument string) (*priceResult, error) {
	var out priceResult
	if err := c.do("GET", "/api/price", nil, &out, map[string]string{"instrument": instrument}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) History(instrument string) ([]models.PricePoint, error) {
	var out []models.PricePoint
	if err := c.do("GET", "/api/history", nil, &out, map[string]string{"instrument": instrument}); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *apiClient) Transactions(sessionID, order string) ([]models.Transaction, error) {
	var out []models.Transaction
	query := map[string]string{"session_id": sessionID, "order": order}
	if err := c.do("GET", "/api/transactions", nil, &out, query); err != nil {
		return nil, err
	}
	return out, nil
}

type portfolioResult struct {
	Balance    float64            `json:"balance"`
	Holdings   map[string]float64 `json:"holdings"`
	TotalValue float64            `json:"total_value"`
}

func (c *apiClient) Portfolio(sessionID string) (*portfolioResult, error) {
	var out portfolioResult
	if err := c.do("GET", "/api/portfolio", nil, &out, map[string]string{"session_id": sessionID}); err != nil {
		return nil, err
	}
	return &out, nil
}
