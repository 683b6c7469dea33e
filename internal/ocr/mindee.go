// Package ocr reads receipt fields from images through Mindee's receipt
// API.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nuacha-app/nuacha/internal/model"
	"github.com/nuacha-app/nuacha/internal/receipt"
)

// DefaultEndpoint is Mindee's expense receipt prediction endpoint.
const DefaultEndpoint = "https://api.mindee.net/v1/products/mindee/expense_receipts/v5/predict"

// Client extracts receipt fields from one page.
type Client interface {
	ReadPage(ctx context.Context, filename string, data []byte) (receipt.PageResult, error)
}

// MindeeClient calls the Mindee receipt API.
type MindeeClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewMindeeClient creates a client. A blank endpoint uses DefaultEndpoint.
func NewMindeeClient(endpoint, apiKey string) *MindeeClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &MindeeClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type stringField struct {
	Value      *string `json:"value"`
	Confidence float64 `json:"confidence"`
}

type numberField struct {
	Value      *json.Number `json:"value"`
	Confidence float64      `json:"confidence"`
}

type mindeeLineItem struct {
	Description *string      `json:"description"`
	Quantity    *json.Number `json:"quantity"`
	TotalAmount *json.Number `json:"total_amount"`
}

type mindeePrediction struct {
	SupplierName stringField      `json:"supplier_name"`
	Date         stringField      `json:"date"`
	TotalAmount  numberField      `json:"total_amount"`
	TotalNet     numberField      `json:"total_net"`
	TotalTax     numberField      `json:"total_tax"`
	LineItems    []mindeeLineItem `json:"line_items"`
	Locale       struct {
		Currency *string `json:"currency"`
	} `json:"locale"`
}

type mindeeResponse struct {
	APIRequest struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"api_request"`
	Document struct {
		Inference struct {
			Prediction mindeePrediction `json:"prediction"`
		} `json:"inference"`
	} `json:"document"`
}

// ReadPage uploads one page and converts Mindee's prediction.
func (c *MindeeClient) ReadPage(ctx context.Context, filename string, data []byte) (receipt.PageResult, error) {
	if c.apiKey == "" {
		return receipt.PageResult{}, fmt.Errorf("mindee API key not configured")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("document", filename)
	if err != nil {
		return receipt.PageResult{}, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return receipt.PageResult{}, fmt.Errorf("writing form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return receipt.PageResult{}, fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return receipt.PageResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return receipt.PageResult{}, fmt.Errorf("calling mindee: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return receipt.PageResult{}, fmt.Errorf("reading mindee response: %w", err)
	}

	var out mindeeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return receipt.PageResult{}, fmt.Errorf("parsing mindee response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode/100 != 2 {
		msg := out.APIRequest.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return receipt.PageResult{}, fmt.Errorf("mindee returned %d: %s", resp.StatusCode, msg)
	}
	return convert(out.Document.Inference.Prediction), nil
}

func convert(p mindeePrediction) receipt.PageResult {
	var res receipt.PageResult

	if p.SupplierName.Value != nil && strings.TrimSpace(*p.SupplierName.Value) != "" {
		res.Vendor = receipt.Known(strings.TrimSpace(*p.SupplierName.Value), p.SupplierName.Confidence)
	}
	if p.Date.Value != nil {
		if t, err := time.Parse("2006-01-02", *p.Date.Value); err == nil {
			res.Date = receipt.Known(t, p.Date.Confidence)
		}
	}
	res.Total = amountField(p.TotalAmount)
	res.Subtotal = amountField(p.TotalNet)
	res.Tax = amountField(p.TotalTax)
	if p.Locale.Currency != nil {
		res.Currency = *p.Locale.Currency
	}

	for _, li := range p.LineItems {
		amount, ok := number(li.TotalAmount)
		if !ok {
			continue
		}
		item := model.LineItem{Amount: amount, Quantity: decimal.NewFromInt(1)}
		if li.Description != nil {
			item.Description = strings.TrimSpace(*li.Description)
		}
		if q, ok := number(li.Quantity); ok {
			item.Quantity = q
		}
		res.LineItems = append(res.LineItems, item)
	}
	return res
}

func amountField(f numberField) receipt.Field[decimal.Decimal] {
	v, ok := number(f.Value)
	if !ok {
		return receipt.Field[decimal.Decimal]{}
	}
	return receipt.Known(v, f.Confidence)
}

func number(n *json.Number) (decimal.Decimal, bool) {
	if n == nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d.Round(2), true
}
