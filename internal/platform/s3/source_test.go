package s3

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	s3iface.S3API

	objects map[string][]byte
	err     error
	lastIn  *awss3.GetObjectInput
}

func (f *fakeS3) GetObjectWithContext(
	ctx aws.Context,
	in *awss3.GetObjectInput,
	opts ...request.Option,
) (*awss3.GetObjectOutput, error) {
	f.lastIn = in
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(awss3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	return &awss3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageSource_Resolve(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{
		"images/uploads/cat.png": encodePNG(t, 8, 4),
	}}
	src, err := NewImageSource(fake, 0, nil)
	require.NoError(t, err)

	img, err := src.Resolve(context.Background(), "images", "uploads/cat.png")
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())
	_, isNRGBA := img.(*image.NRGBA)
	assert.True(t, isNRGBA, "decoded images are normalised to NRGBA")
	assert.Equal(t, "uploads/cat.png", aws.StringValue(fake.lastIn.Key))
}

func TestImageSource_Resolve_Errors(t *testing.T) {
	pngData := encodePNG(t, 4, 4)

	testCases := []struct {
		name    string
		fake    *fakeS3
		max     int64
		bucket  string
		key     string
		wantErr error
	}{
		{
			name:    "missing key",
			fake:    &fakeS3{objects: map[string][]byte{}},
			bucket:  "images",
			key:     "nope.jpg",
			wantErr: ErrNotFound,
		},
		{
			name:    "empty location",
			fake:    &fakeS3{},
			bucket:  "",
			key:     "a.jpg",
			wantErr: ErrEmptyLocation,
		},
		{
			name:    "not an image",
			fake:    &fakeS3{objects: map[string][]byte{"images/notes.txt": []byte("hello")}},
			bucket:  "images",
			key:     "notes.txt",
			wantErr: ErrUndecodable,
		},
		{
			name:    "too large",
			fake:    &fakeS3{objects: map[string][]byte{"images/big.png": pngData}},
			max:     10,
			bucket:  "images",
			key:     "big.png",
			wantErr: ErrTooLarge,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src, err := NewImageSource(tc.fake, tc.max, nil)
			require.NoError(t, err)

			img, err := src.Resolve(context.Background(), tc.bucket, tc.key)
			assert.Nil(t, img)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestImageSource_Resolve_TransportError(t *testing.T) {
	cause := errors.New("RequestError: connection reset")
	src, err := NewImageSource(&fakeS3{err: cause}, 0, nil)
	require.NoError(t, err)

	_, err = src.Resolve(context.Background(), "images", "a.jpg")
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestDecode_JPEG(t *testing.T) {
	src := imaging.New(6, 3, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, src, imaging.JPEG))

	img, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 6, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())
}

func TestNewImageSource_NilClient(t *testing.T) {
	_, err := NewImageSource(nil, 0, nil)
	assert.ErrorIs(t, err, ErrNilClient)
}
