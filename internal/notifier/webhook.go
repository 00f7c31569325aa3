// Package notifier delivers status text, queue positions and finished
// artifacts back to the requester through the front-end's callback endpoint.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/cesargomez89/fetchpay/internal/constants"
	"github.com/cesargomez89/fetchpay/internal/httpclient"
	"github.com/cesargomez89/fetchpay/internal/logger"
)

// Webhook posts notifications to a front-end callback URL. Artifact uploads
// use a generous timeout to tolerate large transfers.
type Webhook struct {
	client   *httpclient.Client
	uploader *http.Client
	baseURL  string
	log      *logger.Logger
}

func NewWebhook(baseURL string, log *logger.Logger) *Webhook {
	if log == nil {
		log = logger.Default()
	}
	return &Webhook{
		client:   httpclient.NewClient(nil),
		uploader: &http.Client{Timeout: constants.DeliveryHTTPTimeout},
		baseURL:  baseURL,
		log:      log.WithComponent("notifier"),
	}
}

type positionPayload struct {
	Target   string `json:"target"`
	Position int    `json:"position"`
}

type statusPayload struct {
	Target string `json:"target"`
	Text   string `json:"text"`
}

func (w *Webhook) UpdatePosition(target string, position int) error {
	return w.postJSON("/position", positionPayload{Target: target, Position: position})
}

func (w *Webhook) ReportStatus(target, text string) error {
	return w.postJSON("/status", statusPayload{Target: target, Text: text})
}

// DeliverArtifact streams the file as a multipart upload so large artifacts
// never have to fit in memory.
func (w *Webhook) DeliverArtifact(target, path, displayName string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		var werr error
		defer func() { pw.CloseWithError(werr) }()

		if werr = mw.WriteField("target", target); werr != nil {
			return
		}
		part, perr := mw.CreateFormFile("file", displayName)
		if perr != nil {
			werr = perr
			return
		}
		if _, werr = io.Copy(part, f); werr != nil {
			return
		}
		werr = mw.Close()
	}()

	req, err := http.NewRequest(http.MethodPost, w.baseURL+"/artifact", pr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.uploader.Do(req)
	if err != nil {
		return fmt.Errorf("upload artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload artifact: unexpected status %d", resp.StatusCode)
	}

	w.log.Info("Artifact delivered", "target", target, "name", displayName)
	return nil
}

func (w *Webhook) postJSON(route string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, w.baseURL+route, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(context.Background(), req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("callback %s: unexpected status %d", route, resp.StatusCode)
	}
	return nil
}
