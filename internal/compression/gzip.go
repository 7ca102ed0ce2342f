package compression

import (
	"compress/gzip"
	"io"
	"strings"
)

// IsCompressed reports whether a key names a gzip archive the pipeline should
// decompress before decoding.
func IsCompressed(key string) bool {
	return strings.HasSuffix(key, ".gz") || strings.HasSuffix(key, ".gzip")
}

func Gzip(dst io.Writer, src io.Reader) (int64, error) {
	gz := gzip.NewWriter(dst)

	n, err := io.Copy(gz, src)
	if err != nil {
		_ = gz.Close()
		return n, err
	}

	// gzip flushes trailing data on Close.
	if err := gz.Close(); err != nil {
		return n, err
	}
	return n, nil
}
