package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/alphabot-ai/confessional/internal/model"
)

// Model is the NSFW classification backend.
type Model interface {
	// Load prepares the model. It is called once.
	Load(ctx context.Context) error
	Predict(ctx context.Context, t *Tensor) ([]model.Prediction, error)
}

// RemoteModel calls an HTTP inference server.
//
//	GET  {base}/healthz        -> 200 once the model is loaded
//	POST {base}/v1/classify    {"shape":[h,w,3],"data":[...]}
//	                           -> [{"className":"Neutral","probability":0.93}, ...]
type RemoteModel struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewRemoteModel(baseURL string) *RemoteModel {
	return &RemoteModel{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (m *RemoteModel) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.BaseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("model health: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model health: status %d", resp.StatusCode)
	}
	return nil
}

type classifyRequest struct {
	Shape [3]int  `json:"shape"`
	Data  []int32 `json:"data"`
}

type classifyResult struct {
	ClassName   string  `json:"className"`
	Probability float64 `json:"probability"`
}

func (m *RemoteModel) Predict(ctx context.Context, t *Tensor) ([]model.Prediction, error) {
	body, err := json.Marshal(classifyRequest{Shape: t.Shape(), Data: t.Data})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/v1/classify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("classify: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var results []classifyResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("classify: decode response: %w", err)
	}
	preds := make([]model.Prediction, len(results))
	for i, r := range results {
		preds[i] = model.Prediction{Label: r.ClassName, Probability: r.Probability}
	}
	return preds, nil
}
