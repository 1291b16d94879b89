package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"atlas/internal/blob/core"
)

// fakeBucket answers the subset of the S3 REST API the store uses.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]fakeObject
	puts    int
}

type fakeObject struct {
	body        []byte
	contentType string
}

func respond(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{StatusCode: status, Header: header, Body: io.NopCloser(strings.NewReader(body))}
}

func (f *fakeBucket) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, key, _ := strings.Cut(strings.TrimPrefix(req.URL.Path, "/"), "/")
	key, _ = url.PathUnescape(key)

	if req.Method == http.MethodGet && req.URL.Query().Get("list-type") == "2" {
		prefix := req.URL.Query().Get("prefix")
		var keys []string
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult><IsTruncated>false</IsTruncated>`)
		for _, k := range keys {
			fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size><ETag>&quot;e-%s&quot;</ETag><LastModified>2024-03-01T12:00:00Z</LastModified></Contents>",
				k, len(f.objects[k].body), k)
		}
		b.WriteString("</ListBucketResult>")
		return respond(http.StatusOK, b.String(), http.Header{"Content-Type": {"application/xml"}}), nil
	}

	obj, ok := f.objects[key]
	headers := func() http.Header {
		return http.Header{
			"Content-Length": {strconv.Itoa(len(obj.body))},
			"Content-Type":   {obj.contentType},
			"Etag":           {`"etag-1"`},
			"Last-Modified":  {time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Format(http.TimeFormat)},
		}
	}
	switch req.Method {
	case http.MethodHead:
		if !ok {
			return respond(http.StatusNotFound, "", nil), nil
		}
		return respond(http.StatusOK, "", headers()), nil
	case http.MethodGet:
		if !ok {
			return respond(http.StatusNotFound, `<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`,
				http.Header{"Content-Type": {"application/xml"}}), nil
		}
		resp := respond(http.StatusOK, "", headers())
		resp.Body = io.NopCloser(bytes.NewReader(obj.body))
		return resp, nil
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if decoded, ok := unchunk(body); ok {
			body = decoded
		}
		f.puts++
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
		return respond(http.StatusOK, "", http.Header{"Etag": {`"etag-1"`}}), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, "", nil), nil
	}
	return respond(http.StatusNotImplemented, "", nil), nil
}

// unchunk decodes a single aws-chunked frame: <hex size>\r\n<body>\r\n0\r\n...
func unchunk(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 || parts[2] != "0" {
		return nil, false
	}
	n, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || int(n) != len(parts[1]) {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newFakeStore(t *testing.T, prefix string) (*Store, *fakeBucket) {
	t.Helper()
	bucket := &fakeBucket{objects: make(map[string]fakeObject)}
	store, err := New(context.Background(), Config{
		Bucket:          "labels-bucket",
		Endpoint:        "https://s3.fake.local",
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "secret",
		PathStyle:       true,
		Prefix:          prefix,
		HTTPClient:      &http.Client{Transport: bucket},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store, bucket
}

func TestStoreFlow(t *testing.T) {
	ctx := context.Background()
	store, bucket := newFakeStore(t, "/atlas/")

	info, err := store.Put(ctx, "labels/one.txt", strings.NewReader("label text"), core.PutOptions{ContentType: "text/plain"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Key != "labels/one.txt" || info.ContentType != "text/plain" || info.ETag != "etag-1" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, ok := bucket.objects["atlas/labels/one.txt"]; !ok {
		t.Fatalf("expected prefixed object key, have %v", bucket.objects)
	}

	_, rc, err := store.Get(ctx, "labels/one.txt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "label text" {
		t.Fatalf("unexpected body %q", data)
	}

	if _, err := store.Put(ctx, "labels/one.txt", strings.NewReader("again"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if bucket.puts != 1 {
		t.Fatalf("duplicate put must not upload, puts=%d", bucket.puts)
	}

	if _, err := store.Put(ctx, "labels/two.txt", strings.NewReader("2"), core.PutOptions{}); err != nil {
		t.Fatalf("put two: %v", err)
	}
	list, err := store.List(ctx, "labels/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Key != "labels/one.txt" || list[1].Key != "labels/two.txt" {
		t.Fatalf("unexpected list %+v", list)
	}

	if ok, err := store.Delete(ctx, "labels/one.txt"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if ok, err := store.Delete(ctx, "labels/one.txt"); err != nil || ok {
		t.Fatalf("second delete: %v %v", ok, err)
	}
}

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := newFakeStore(t, "")
	if _, err := store.Head(ctx, "labels/none.jpg"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "labels/none.jpg"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
}

func TestStorePresign(t *testing.T) {
	store, _ := newFakeStore(t, "")
	signed, err := store.PresignURL(context.Background(), "labels/a.jpg", core.SignedURLOptions{Expiry: 90 * time.Second})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	u, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Host != "s3.fake.local" || u.Path != "/labels-bucket/labels/a.jpg" || u.Query().Get("X-Amz-Expires") != "90" {
		t.Fatalf("unexpected presigned url %s", signed)
	}
	if _, err := store.PresignURL(context.Background(), "labels/a.jpg", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	store, _ := newFakeStore(t, "")
	if store.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	if _, err := store.Put(context.Background(), "../x", strings.NewReader(""), core.PutOptions{}); err == nil {
		t.Fatalf("expected invalid key error")
	}
}
