package storage

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

var (
	ErrInvalidLocation  = errors.New("invalid storage location")
	ErrLocationMismatch = errors.New("location does not belong to this storage backend")
)

// Object storage URI of the form scheme://bucket/prefix
type Location struct {
	Scheme string
	Bucket string
	Prefix string
}

func ParseLocation(uri string) (Location, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %w", ErrInvalidLocation, err)
	}

	if u.Scheme == "" || u.Host == "" {
		return Location{}, fmt.Errorf("%w: %q needs a scheme and a bucket", ErrInvalidLocation, uri)
	}

	return Location{
		Scheme: u.Scheme,
		Bucket: u.Host,
		Prefix: strings.TrimPrefix(u.Path, "/"),
	}, nil
}

func NewLocation(scheme, bucket string, elem ...string) Location {
	return Location{Scheme: scheme, Bucket: bucket}.Join(elem...)
}

func (l Location) String() string {
	if l.Prefix == "" {
		return fmt.Sprintf("%s://%s", l.Scheme, l.Bucket)
	}

	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Prefix)
}

// Appends path elements to the prefix. A trailing slash on the last element is kept.
func (l Location) Join(elem ...string) Location {
	if len(elem) == 0 {
		return l
	}

	parts := append([]string{l.Prefix}, elem...)
	joined := strings.TrimPrefix(path.Join(parts...), "/")
	if joined == "." {
		joined = ""
	}
	if joined != "" && strings.HasSuffix(elem[len(elem)-1], "/") {
		joined += "/"
	}

	return Location{Scheme: l.Scheme, Bucket: l.Bucket, Prefix: joined}
}

// Prefix with a trailing slash so listing `a/b` does not also match `a/bc`
func (l Location) DirPrefix() string {
	if l.Prefix == "" || strings.HasSuffix(l.Prefix, "/") {
		return l.Prefix
	}

	return l.Prefix + "/"
}
