package mocks

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/phrazzld/classifier-worker/internal/classify"
)

// KeyedImage is a decoded image tagged with the key it was resolved from,
// letting classifier mocks map an image back to its source.
type KeyedImage struct {
	image.Image
	Key string
}

// NewKeyedImage returns a 1x1 white image tagged with key.
func NewKeyedImage(key string) KeyedImage {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.White)
	return KeyedImage{Image: img, Key: key}
}

// KeyOf returns the key of a KeyedImage, or "" for any other image.
func KeyOf(img image.Image) string {
	if keyed, ok := img.(KeyedImage); ok {
		return keyed.Key
	}
	return ""
}

// ResolveCall records the arguments of one Resolve invocation.
type ResolveCall struct {
	Bucket string
	Key    string
}

// MockImageSource implements classify.ImageSource.
type MockImageSource struct {
	// ResolveFn overrides the default behavior when set.
	ResolveFn func(ctx context.Context, bucket, key string) (image.Image, error)

	// Errs maps a key to the error returned for it.
	Errs map[string]error
	Err  error

	mu    sync.Mutex
	calls []ResolveCall
}

var _ classify.ImageSource = (*MockImageSource)(nil)

// Resolve implements classify.ImageSource. By default it returns a
// KeyedImage for key.
func (m *MockImageSource) Resolve(ctx context.Context, bucket, key string) (image.Image, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ResolveCall{Bucket: bucket, Key: key})
	m.mu.Unlock()

	if m.ResolveFn != nil {
		return m.ResolveFn(ctx, bucket, key)
	}
	if err, ok := m.Errs[key]; ok {
		return nil, err
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return NewKeyedImage(key), nil
}

// Calls returns a copy of the recorded Resolve invocations.
func (m *MockImageSource) Calls() []ResolveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ResolveCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of Resolve invocations.
func (m *MockImageSource) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
