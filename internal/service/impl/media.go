package impl

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/service"
)

func (s *AppService) UploadMedia(ctx context.Context, filename string, content io.Reader) (media domain.Media, err error) {
	filename = filepath.Base(filename)
	if filename == "." || filename == string(filepath.Separator) {
		return media, fmt.Errorf("%w: file name is required", service.ErrInvalidInput)
	}
	err = s.API.Upload(ctx, "/media/upload", "file", filename, content, &media)
	return
}
