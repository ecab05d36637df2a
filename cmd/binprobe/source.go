package main

import (
	"context"
	"fmt"
	nethttp "net/http"
	"net/url"
	"strings"

	"github.com/meigma/binfile"
	binhttp "github.com/meigma/binfile/http"
	"github.com/meigma/binfile/remote"
	"github.com/meigma/binfile/s3"
)

// target is an opened byte source plus whatever must be released with it.
type target struct {
	src    binfile.ByteSource
	remote *remote.Source
	close  func() error
}

// downloaded reports bytes fetched so far, or the file size for local targets.
func (t *target) downloaded() int64 {
	if t.remote != nil {
		return t.remote.DownloadedBytes()
	}
	return t.src.Len()
}

// openTarget opens a local path, an http(s) URL or an s3://bucket/key URL.
func (a *app) openTarget(ctx context.Context, location string) (*target, error) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		src, err := binhttp.Open(ctx, location,
			binhttp.WithClient(newHTTPClient(a.cfg)),
			binhttp.WithHeaders(parseHeaders(a.cfg.headers)),
			binhttp.WithLogger(a.logger),
			binhttp.WithSourceOptions(a.sourceOptions()...),
		)
		if err != nil {
			return nil, err
		}
		return &target{src: src, remote: src, close: noClose}, nil

	case strings.HasPrefix(location, "s3://"):
		u, err := url.Parse(location)
		if err != nil {
			return nil, err
		}
		bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
		if bucket == "" || key == "" {
			return nil, fmt.Errorf("invalid s3 location %q: want s3://bucket/key", location)
		}
		client, err := s3.NewClient(ctx, s3.Config{
			Endpoint:        a.cfg.s3Endpoint,
			Region:          a.cfg.s3Region,
			AccessKeyID:     a.cfg.s3AccessKey,
			SecretAccessKey: a.cfg.s3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		src, err := s3.Open(ctx, client, bucket, key,
			s3.WithLogger(a.logger),
			s3.WithSourceOptions(a.sourceOptions()...),
		)
		if err != nil {
			return nil, err
		}
		return &target{src: src, remote: src, close: noClose}, nil

	default:
		f, err := binfile.OpenFile(location)
		if err != nil {
			return nil, err
		}
		return &target{src: f, close: f.Close}, nil
	}
}

func (a *app) sourceOptions() []remote.Option {
	opts := []remote.Option{
		remote.WithFetchTimeout(a.cfg.timeout),
		remote.WithBlockRadius(a.cfg.blockRadius),
	}
	if a.cfg.blockSize > 0 {
		opts = append(opts, remote.WithBlockSize(a.cfg.blockSize))
	}
	return opts
}

func parseHeaders(values []string) nethttp.Header {
	h := make(nethttp.Header)
	for _, v := range values {
		key, value, ok := strings.Cut(v, ":")
		if !ok {
			continue
		}
		h.Add(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return h
}

func noClose() error { return nil }
