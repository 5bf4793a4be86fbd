package faceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"faceattend/internal/model"
)

// ErrImageURLRequired is returned when no image is given.
var ErrImageURLRequired = errors.New("image url required")

// FaceQuality contains face quality metrics reported by the service.
type FaceQuality struct {
	Score     float64 `json:"score"`
	Blur      float64 `json:"blur"`
	IsFrontal bool    `json:"is_frontal"`
}

type face struct {
	Embedding []float64         `json:"embedding"`
	Box       model.BoundingBox `json:"box"`
	Score     float64           `json:"score"`
	Quality   *FaceQuality      `json:"quality"`
}

// Client calls the face detection microservice.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
	// MinScore drops detections the service scored lower than this.
	MinScore float64
	// MinQuality drops faces whose reported quality score is lower. Faces
	// reported without quality metrics are kept.
	MinQuality float64
	// FrontalOnly drops faces the service reports as not frontal.
	FrontalOnly bool
}

// New creates a client with configurable timeout.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // Face processing can take time
		},
	}
}

// EmbedFaces asks the service for every face in the image. In skip mode no
// faces are ever returned.
func (c *Client) EmbedFaces(ctx context.Context, imageURL string) ([]model.Detection, error) {
	if c.Skip {
		return nil, nil
	}
	if imageURL == "" {
		return nil, ErrImageURLRequired
	}

	body, _ := json.Marshal(map[string]string{"image_url": imageURL})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/embed/faces", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out struct {
		Faces []face `json:"faces"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	dets := make([]model.Detection, 0, len(out.Faces))
	for _, f := range out.Faces {
		if len(f.Embedding) == 0 || f.Score < c.MinScore || !c.acceptable(f.Quality) {
			continue
		}
		dets = append(dets, model.Detection{Embedding: f.Embedding, Box: f.Box})
	}
	return dets, nil
}

func (c *Client) acceptable(q *FaceQuality) bool {
	if q == nil {
		return true
	}
	if q.Score < c.MinQuality {
		return false
	}
	return q.IsFrontal || !c.FrontalOnly
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}

	return nil
}
