package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// maxDownloadSize - предел Telegram для скачивания файлов ботом
const maxDownloadSize = 20 << 20

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

// retryable: сетевые ошибки, 5xx и 429
func retryable(err error) bool {
	if err == nil {
		return false
	}
	se, ok := err.(*statusError)
	if !ok {
		return true
	}
	return se.code >= 500 || se.code == http.StatusTooManyRequests
}

// downloader скачивает присланные файлы с повторами
type downloader struct {
	api      Sender
	client   *http.Client
	pipeline failsafe.Executor[[]byte]
}

func newDownloader(api Sender, client *http.Client) *downloader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	retryPolicy := retrypolicy.NewBuilder[[]byte]().
		HandleIf(func(_ []byte, err error) bool {
			return retryable(err)
		}).
		WithBackoff(200*time.Millisecond, 2*time.Second).
		WithMaxRetries(3).
		Build()

	return &downloader{
		api:      api,
		client:   client,
		pipeline: failsafe.With[[]byte](retryPolicy),
	}
}

func (d *downloader) Download(ctx context.Context, fileID string) ([]byte, error) {
	data, err := d.pipeline.WithContext(ctx).GetWithExecution(func(exec failsafe.Execution[[]byte]) ([]byte, error) {
		return d.fetch(ctx, fileID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, err)
	}
	return data, nil
}

func (d *downloader) fetch(ctx context.Context, fileID string) ([]byte, error) {
	url, err := d.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDownloadSize {
		return nil, &statusError{code: http.StatusRequestEntityTooLarge}
	}
	return data, nil
}
