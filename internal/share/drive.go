package share

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/resilience"
)

const (
	defaultDriveTokenURL  = "https://oauth2.googleapis.com/token"
	defaultDriveUploadURL = "https://www.googleapis.com/upload/drive/v3/files"
)

// DriveConfig configures the Google Drive backend. Credentials come from
// the fields or, when CredentialsFile is set, from a saved OAuth
// credentials file holding client_id, client_secret and refresh_token.
type DriveConfig struct {
	ClientID        string
	ClientSecret    string
	RefreshToken    string
	CredentialsFile string
	FolderID        string
	TokenURL        string
	UploadURL       string
	Timeout         time.Duration
	Retry           resilience.RetryConfig
}

type savedCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
	TokenURI     string `json:"token_uri"`
}

// Drive uploads files into a Drive folder with multipart uploads.
type Drive struct {
	cfg  DriveConfig
	http *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewDrive creates a Drive backend.
func NewDrive(cfg DriveConfig) (*Drive, error) {
	if cfg.CredentialsFile != "" {
		if err := loadCredentials(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, eris.New("share: drive requires client_id, client_secret and refresh_token")
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultDriveTokenURL
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = defaultDriveUploadURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = resilience.DefaultRetryConfig()
	}
	return &Drive{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

func loadCredentials(cfg *DriveConfig) error {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return eris.Wrapf(err, "share: read drive credentials %s", cfg.CredentialsFile)
	}
	var saved savedCredentials
	if err := json.Unmarshal(data, &saved); err != nil {
		return eris.Wrapf(err, "share: parse drive credentials %s", cfg.CredentialsFile)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = saved.ClientID
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = saved.ClientSecret
	}
	if cfg.RefreshToken == "" {
		cfg.RefreshToken = saved.RefreshToken
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = saved.TokenURI
	}
	return nil
}

// Upload creates a file named name in the configured folder.
func (d *Drive) Upload(ctx context.Context, name, contentType string, body []byte) error {
	retry := d.cfg.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("drive", "upload")
	}
	return resilience.Do(ctx, retry, func(ctx context.Context) error {
		token, err := d.accessToken(ctx)
		if err != nil {
			return err
		}

		payload, boundary, err := multipartBody(name, contentType, d.cfg.FolderID, body)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.UploadURL+"?uploadType=multipart", payload)
		if err != nil {
			return eris.Wrap(err, "drive: create request")
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "multipart/related; boundary="+boundary)

		resp, err := d.http.Do(req)
		if err != nil {
			return eris.Wrap(err, "drive: upload")
		}
		defer resp.Body.Close() //nolint:errcheck

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			d.invalidate()
			return resilience.NewTransientError(eris.New("drive: token rejected"), resp.StatusCode)
		case resp.StatusCode >= 300:
			return resilience.StatusError("drive", resp.StatusCode, string(respBody))
		}

		var created struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(respBody, &created)
		zap.L().Debug("drive: file created", zap.String("name", name), zap.String("file_id", created.ID))
		return nil
	})
}

// multipartBody builds a multipart/related body of JSON metadata followed
// by the media.
func multipartBody(name, contentType, folderID string, body []byte) (io.Reader, string, error) {
	meta := map[string]any{"name": name, "mimeType": contentType}
	if folderID != "" {
		meta["parents"] = []string{folderID}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", eris.Wrap(err, "drive: encode metadata")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	boundary := "chart-etl-" + uuid.NewString()
	if err := w.SetBoundary(boundary); err != nil {
		return nil, "", eris.Wrap(err, "drive: set boundary")
	}

	parts := []struct {
		contentType string
		data        []byte
	}{
		{"application/json; charset=UTF-8", metaJSON},
		{contentType, body},
	}
	for _, p := range parts {
		pw, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, "", eris.Wrap(err, "drive: create part")
		}
		if _, err := pw.Write(p.data); err != nil {
			return nil, "", eris.Wrap(err, "drive: write part")
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", eris.Wrap(err, "drive: close multipart")
	}
	return &buf, boundary, nil
}

// accessToken returns a cached access token, refreshing it from the
// refresh token when expired.
func (d *Drive) accessToken(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.token != "" && time.Now().Before(d.expires) {
		return d.token, nil
	}
	zap.L().Info("drive: refreshing access token")

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {d.cfg.RefreshToken},
		"client_id":     {d.cfg.ClientID},
		"client_secret": {d.cfg.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "drive: create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "drive: token request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", resilience.StatusError("drive token", resp.StatusCode, string(body))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", eris.Wrap(err, "drive: decode token")
	}
	if tok.AccessToken == "" {
		return "", eris.New("drive: empty access token")
	}

	d.token = tok.AccessToken
	d.expires = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - 30*time.Second)
	return d.token, nil
}

func (d *Drive) invalidate() {
	d.mu.Lock()
	d.token = ""
	d.mu.Unlock()
}
