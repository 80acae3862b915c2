// Package s3 resolves image keys in S3 buckets to decoded images.
//
// JPEG, PNG, GIF, BMP, TIFF and WebP objects are supported. EXIF orientation
// is applied and every image is normalised to NRGBA before it reaches a
// classifier.
package s3
