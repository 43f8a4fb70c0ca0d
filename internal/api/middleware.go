package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/klauspost/compress/zstd"

	"github.com/wonny/optincome/pkg/logger"
)

type zstdResponseWriter struct {
	http.ResponseWriter
	encoder *zstd.Encoder
}

func (w *zstdResponseWriter) Write(b []byte) (int, error) {
	return w.encoder.Write(b)
}

// zstdMiddleware compresses responses for clients sending Accept-Encoding: zstd
func zstdMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept-Encoding")

			// Only compress if client explicitly accepts zstd
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "zstd") {
				next.ServeHTTP(w, r)
				return
			}

			encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
			if err != nil {
				log.WithError(err).Error("Failed to create zstd encoder")
				next.ServeHTTP(w, r)
				return
			}
			defer func() {
				if err := encoder.Close(); err != nil {
					log.WithError(err).Debug("zstd flush failed")
				}
			}()

			w.Header().Set("Content-Encoding", "zstd")
			w.Header().Del("Content-Length")

			next.ServeHTTP(&zstdResponseWriter{ResponseWriter: w, encoder: encoder}, r)
		})
	}
}
