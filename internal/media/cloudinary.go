package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	backgroundRemoval = "e_background_removal"
	uploadFolder      = "multimind"
)

type CloudinaryConfig struct {
	CloudName   string
	APIKey      string
	APISecret   string
	APIURL      string
	DeliveryURL string
}

// Cloudinary uploads images and builds transformation URLs.
type Cloudinary struct {
	cfg        CloudinaryConfig
	httpClient *http.Client
	now        func() time.Time
}

type UploadOptions struct {
	PublicID       string
	Transformation string
}

type Asset struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Format    string `json:"format"`
	Version   int64  `json:"version"`
}

func NewCloudinary(cfg CloudinaryConfig, httpClient *http.Client) *Cloudinary {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 90 * time.Second}
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.DeliveryURL = strings.TrimRight(cfg.DeliveryURL, "/")
	return &Cloudinary{cfg: cfg, httpClient: httpClient, now: time.Now}
}

// Upload stores img, applying opts.Transformation as an incoming transformation.
func (c *Cloudinary) Upload(ctx context.Context, img Image, opts UploadOptions) (*Asset, error) {
	if opts.PublicID == "" {
		opts.PublicID = uploadFolder + "/" + uuid.NewString()
	}

	params := map[string]string{
		"public_id": opts.PublicID,
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	if opts.Transformation != "" {
		params["transformation"] = opts.Transformation
	}
	signature := Sign(params, c.cfg.APISecret)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range params {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write %s field: %w", k, err)
		}
	}
	if err := writer.WriteField("api_key", c.cfg.APIKey); err != nil {
		return nil, fmt.Errorf("failed to write api_key field: %w", err)
	}
	if err := writer.WriteField("signature", signature); err != nil {
		return nil, fmt.Errorf("failed to write signature field: %w", err)
	}

	part, err := writer.CreatePart(filePartHeader(img))
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, fmt.Errorf("failed to write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", c.cfg.APIURL, c.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newProviderError("cloudinary", resp)
	}

	var asset Asset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	if asset.SecureURL == "" {
		return nil, fmt.Errorf("cloudinary upload returned no secure_url")
	}
	return &asset, nil
}

// URL builds a delivery URL for publicID with the given transformation.
func (c *Cloudinary) URL(publicID, transformation string) string {
	parts := []string{c.cfg.DeliveryURL, c.cfg.CloudName, "image", "upload"}
	if transformation != "" {
		parts = append(parts, transformation)
	}
	parts = append(parts, publicID)
	return strings.Join(parts, "/")
}

// Host uploads img unchanged and returns its secure URL.
func (c *Cloudinary) Host(ctx context.Context, img Image) (string, error) {
	asset, err := c.Upload(ctx, img, UploadOptions{})
	if err != nil {
		return "", err
	}
	return asset.SecureURL, nil
}

// RemoveBackground uploads img with the background removal effect applied.
func (c *Cloudinary) RemoveBackground(ctx context.Context, img Image) (string, error) {
	asset, err := c.Upload(ctx, img, UploadOptions{Transformation: backgroundRemoval})
	if err != nil {
		return "", err
	}
	return asset.SecureURL, nil
}

// RemoveObject uploads img and returns a URL that erases object with generative fill.
func (c *Cloudinary) RemoveObject(ctx context.Context, img Image, object string) (string, error) {
	asset, err := c.Upload(ctx, img, UploadOptions{})
	if err != nil {
		return "", err
	}
	return c.URL(asset.PublicID, GenRemoveTransformation(object)), nil
}

// GenRemoveTransformation returns the generative remove effect for object.
func GenRemoveTransformation(object string) string {
	return "e_gen_remove:prompt_" + url.PathEscape(strings.TrimSpace(object))
}

// Sign computes the upload signature: the sorted, &-joined params followed by the secret, SHA-1 hex encoded.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func filePartHeader(img Image) textproto.MIMEHeader {
	filename := img.Filename
	if filename == "" {
		filename = "upload"
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(img.Data)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	h.Set("Content-Type", contentType)
	return h
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
