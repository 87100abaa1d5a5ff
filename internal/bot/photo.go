package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"

	svcErr "github.com/oggyb/matchbot/internal/errors"
	"github.com/oggyb/matchbot/internal/storage"
)

// downloadPhoto fetches the largest size of the message's single photo.
// Albums are rejected. The mime type comes from the file extension, falling
// back to the response header.
func (b *Bot) downloadPhoto(ctx context.Context, in incoming) ([]byte, string, string, error) {
	if in.album {
		return nil, "", "", svcErr.Validation("Please upload only one photo.")
	}
	if len(in.photos) == 0 {
		return nil, "", "", svcErr.Validation("Please send a photo.")
	}

	largest := in.photos[0]
	for _, p := range in.photos[1:] {
		if p.Width*p.Height > largest.Width*largest.Height {
			largest = p
		}
	}

	link, err := b.api.GetFileDirectURL(largest.FileID)
	if err != nil {
		return nil, "", "", svcErr.External("telegram get file", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, "", "", svcErr.External("download photo", stripURL(err))
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, "", "", svcErr.External("download photo", stripURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", "", svcErr.External("download photo", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	// one byte over the ceiling is enough for the store to reject it
	data, err := io.ReadAll(io.LimitReader(resp.Body, storage.MaxPhotoSize+1))
	if err != nil {
		return nil, "", "", svcErr.External("read photo", err)
	}

	name := largest.FileID
	if u, err := url.Parse(link); err == nil {
		name = path.Base(u.Path)
	}
	mimeType := mime.TypeByExtension(path.Ext(name))
	if mimeType == "" {
		mimeType = resp.Header.Get("Content-Type")
	}
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mt
	}
	return data, name, mimeType, nil
}

// stripURL drops the request URL from transport errors: file links carry the bot token.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
