// Package kaggle is a minimal client for the Kaggle datasets API: download an
// existing dataset, fetch its metadata, push a new version.
package kaggle

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"xau-data/internal/faults"
)

const defaultBaseURL = "https://www.kaggle.com/api/v1"

// Client talks to the Kaggle datasets API with basic auth.
type Client struct {
	http *resty.Client
}

// NewClient builds a client for the given credentials.
func NewClient(c Creds) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(defaultBaseURL).
			SetBasicAuth(c.Username, c.Key).
			SetTimeout(5 * time.Minute),
	}
}

// SetBaseURL overrides the API endpoint (tests).
func (c *Client) SetBaseURL(u string) { c.http.SetBaseURL(u) }

// DownloadDataset fetches the current dataset bundle for slug (owner/slug)
// and unpacks it into destDir.
func (c *Client) DownloadDataset(ctx context.Context, slug, destDir string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get("/datasets/download/" + slug)
	if err != nil {
		return &faults.ConnectionError{Target: "kaggle", Err: err}
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() != 200 {
		return apiError("download "+slug, resp.StatusCode(), body)
	}

	tmp, err := os.CreateTemp("", "kaggle-*.zip")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", slug, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return unzip(tmp.Name(), destDir)
}

// DownloadMetadata fetches the dataset-metadata.json for slug into destDir.
func (c *Client) DownloadMetadata(ctx context.Context, slug, destDir string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/datasets/metadata/" + slug)
	if err != nil {
		return &faults.ConnectionError{Target: "kaggle", Err: err}
	}
	if resp.StatusCode() != 200 {
		return apiError("metadata "+slug, resp.StatusCode(), strings.NewReader(string(resp.Body())))
	}
	path := filepath.Join(destDir, "dataset-metadata.json")
	if err := os.WriteFile(path, resp.Body(), 0644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

type uploadToken struct {
	Token     string `json:"token"`
	CreateURL string `json:"createUrl"`
}

type versionRequest struct {
	VersionNotes string        `json:"versionNotes"`
	Files        []versionFile `json:"files"`
}

type versionFile struct {
	Token string `json:"token"`
}

// CreateVersion uploads every regular file in folder and creates a new
// dataset version for slug with the given notes. The call is idempotent-safe
// to retry: same files, same notes every attempt.
func (c *Client) CreateVersion(ctx context.Context, slug, folder, notes string) error {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return fmt.Errorf("read folder %s: %w", folder, err)
	}
	req := versionRequest{VersionNotes: notes}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		token, err := c.uploadFile(ctx, filepath.Join(folder, e.Name()))
		if err != nil {
			return err
		}
		req.Files = append(req.Files, versionFile{Token: token})
	}
	if len(req.Files) == 0 {
		return faults.Preconditionf("nothing to publish in %s", folder)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/datasets/create/version/" + slug)
	if err != nil {
		return &faults.ConnectionError{Target: "kaggle", Err: err}
	}
	if resp.StatusCode() != 200 {
		return apiError("create version "+slug, resp.StatusCode(), strings.NewReader(string(resp.Body())))
	}
	return nil
}

// uploadFile registers one file with the upload endpoint and pushes its
// content to the returned storage URL.
func (c *Client) uploadFile(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	var tok uploadToken
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"fileName": filepath.Base(path)}).
		SetResult(&tok).
		Post(fmt.Sprintf("/datasets/upload/file/%d/%d", info.Size(), info.ModTime().UnixMilli()))
	if err != nil {
		return "", &faults.ConnectionError{Target: "kaggle", Err: err}
	}
	if resp.StatusCode() != 200 {
		return "", apiError("upload "+filepath.Base(path), resp.StatusCode(), strings.NewReader(string(resp.Body())))
	}

	if tok.CreateURL != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		putResp, err := c.http.R().
			SetContext(ctx).
			SetBody(data).
			Put(tok.CreateURL)
		if err != nil {
			return "", &faults.ConnectionError{Target: "kaggle storage", Err: err}
		}
		if putResp.StatusCode() >= 300 {
			return "", apiError("store "+filepath.Base(path), putResp.StatusCode(), strings.NewReader(string(putResp.Body())))
		}
	}
	return tok.Token, nil
}

// apiError folds an HTTP failure into the error taxonomy: 401 points at
// credential problems, everything else is a connection-class failure with a
// body snippet for the log.
func apiError(op string, status int, body io.Reader) error {
	snippet := make([]byte, 256)
	n, _ := io.ReadFull(body, snippet)
	msg := strings.TrimSpace(string(snippet[:n]))
	if status == 401 {
		return faults.Preconditionf("kaggle %s: 401 unauthorized, check KAGGLE_USERNAME/KAGGLE_KEY: %s", op, msg)
	}
	return &faults.ConnectionError{
		Target: "kaggle",
		Err:    fmt.Errorf("%s: status %d: %s", op, status, msg),
	}
}

// unzip extracts archive into destDir, refusing entries that escape it.
func unzip(archive, destDir string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()
	for _, zf := range r.File {
		target := filepath.Join(destDir, zf.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes %s", zf.Name, destDir)
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		if err := extractFile(zf, target); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(zf *zip.File, target string) error {
	src, err := zf.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Close()
}
