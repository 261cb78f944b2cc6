package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultRequestTimeout = 10 * time.Second
	maxErrorBodyBytes     = 4 << 10

	headerIdempotencyKey = "Idempotency-Key"
)

// Client — JSON-over-HTTP клиент commerce-бэкенда. Реализует domain.CommerceAPI;
// его задача — перевод HTTP-статусов в доменную таксономию ошибок, в первую
// очередь разграничение «отклонено» и «неизвестно» для оплаты.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Entry
}

// Options задаёт необязательные параметры клиента.
type Options struct {
	Logger     *log.Entry
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Option настраивает Client.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithHTTPClient задаёт готовый http.Client (для тестов и кастомного transport).
func WithHTTPClient(client *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = client
	}
}

// WithTimeout задаёт таймаут на запрос, если http.Client не передан явно.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// NewClient создаёт клиента commerce API.
func NewClient(baseURL string, options ...Option) *Client {
	opts := Options{
		Timeout: defaultRequestTimeout,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "commerce-api")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// Wire-форматы commerce API.
type submitItemDTO struct {
	ProductID string `json:"productId"`
	Quantity  int32  `json:"quantity"`
}

type createOrderRequest struct {
	Items []submitItemDTO `json:"items"`
}

type orderItemDTO struct {
	ProductID      string `json:"productId"`
	Quantity       int32  `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

type orderDTO struct {
	ID         string         `json:"id"`
	Status     string         `json:"status"`
	TotalCents int64          `json:"totalCents"`
	Items      []orderItemDTO `json:"items"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

type productDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"priceCents"`
	ImageRef   string `json:"imageRef"`
	Stock      int32  `json:"stock"`
}

// CreateOrder отправляет POST /orders. Цены в запрос не входят: сервер
// пересчитывает стоимость по собственному каталогу.
func (c *Client) CreateOrder(ctx context.Context, items []domain.SubmitItem, idempotencyKey string) (domain.Order, error) {
	payload := createOrderRequest{Items: make([]submitItemDTO, 0, len(items))}
	for _, item := range items {
		payload.Items = append(payload.Items, submitItemDTO{ProductID: item.ProductID, Quantity: item.Qty})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.Order{}, fmt.Errorf("encode create order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return domain.Order{}, fmt.Errorf("build create order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set(headerIdempotencyKey, idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: create order: %v", domain.ErrTransport, err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return c.decodeOrder(resp.Body)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrOrderRejected, readErrorBody(resp))
	default:
		return domain.Order{}, fmt.Errorf("%w: create order: status %d", domain.ErrTransport, resp.StatusCode)
	}
}

// GetOrder отправляет GET /orders/{id}.
func (c *Client) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/orders/"+orderID, nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("build get order request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: get order: %v", domain.ErrTransport, err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return c.decodeOrder(resp.Body)
	case resp.StatusCode == http.StatusNotFound:
		return domain.Order{}, domain.ErrOrderNotFound
	default:
		return domain.Order{}, fmt.Errorf("%w: get order: status %d", domain.ErrTransport, resp.StatusCode)
	}
}

// PayOrder отправляет POST /orders/{id}/pay. Разграничение исходов критично:
// однозначный отказ провайдера (4xx) — ErrPaymentDeclined; 5xx, сетевые сбои и
// not-found-подобные ответы — ErrPaymentIndeterminate, потому что сервер мог
// зафиксировать платёж до потери ответа.
func (c *Client) PayOrder(ctx context.Context, orderID string) (domain.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders/"+orderID+"/pay", nil)
	if err != nil {
		return domain.Order{}, fmt.Errorf("build pay order request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: pay order: %v", domain.ErrPaymentIndeterminate, err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return c.decodeOrder(resp.Body)
	case resp.StatusCode == http.StatusNotFound:
		return domain.Order{}, fmt.Errorf("%w: pay order: status 404", domain.ErrPaymentIndeterminate)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, readErrorBody(resp))
	default:
		return domain.Order{}, fmt.Errorf("%w: pay order: status %d", domain.ErrPaymentIndeterminate, resp.StatusCode)
	}
}

// GetProduct отправляет GET /products/{id} для обновления снимка каталога.
func (c *Client) GetProduct(ctx context.Context, productID string) (domain.ProductSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products/"+productID, nil)
	if err != nil {
		return domain.ProductSnapshot{}, fmt.Errorf("build get product request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ProductSnapshot{}, fmt.Errorf("%w: get product: %v", domain.ErrTransport, err)
	}
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var dto productDTO
		if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
			return domain.ProductSnapshot{}, fmt.Errorf("decode product: %w", err)
		}
		return domain.ProductSnapshot{
			ProductID:  dto.ID,
			Name:       dto.Name,
			PriceMinor: dto.PriceCents,
			ImageRef:   dto.ImageRef,
			Stock:      dto.Stock,
		}, nil
	case resp.StatusCode == http.StatusNotFound:
		return domain.ProductSnapshot{}, domain.ErrProductNotFound
	default:
		return domain.ProductSnapshot{}, fmt.Errorf("%w: get product: status %d", domain.ErrTransport, resp.StatusCode)
	}
}

func (c *Client) decodeOrder(body io.Reader) (domain.Order, error) {
	var dto orderDTO
	if err := json.NewDecoder(body).Decode(&dto); err != nil {
		return domain.Order{}, fmt.Errorf("decode order: %w", err)
	}

	order := domain.Order{
		ID:          dto.ID,
		Status:      domain.OrderStatus(dto.Status),
		AmountMinor: dto.TotalCents,
		CreatedAt:   dto.CreatedAt,
		UpdatedAt:   dto.UpdatedAt,
	}
	for _, item := range dto.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:  item.ProductID,
			Qty:        item.Quantity,
			PriceMinor: item.UnitPriceCents,
		})
	}

	if !order.Status.Valid() {
		c.logger.WithFields(log.Fields{
			"order_id": order.ID,
			"status":   dto.Status,
		}).Warn("server returned unknown order status")
	}
	return order, nil
}

func readErrorBody(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxErrorBodyBytes))
	_ = body.Close()
}

var _ domain.CommerceAPI = (*Client)(nil)
