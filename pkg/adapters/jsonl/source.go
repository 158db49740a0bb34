package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/sluice/pkg/ports"
)

// Opener opens the underlying document; the source closes it after iterating.
type Opener func() (io.ReadCloser, error)

// Source yields the values of a JSON array, or each value of a JSON stream.
type Source struct {
	open Opener
}

// New creates a Source over the documents returned by open.
func New(open Opener) *Source {
	return &Source{open: open}
}

// File creates a Source reading path at iteration time.
func File(path string) *Source {
	return New(func() (io.ReadCloser, error) { return os.Open(path) })
}

// Bytes creates a Source over an in-memory document.
func Bytes(b []byte) *Source {
	return New(func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(b)), nil })
}

func (s *Source) Capability() ports.Capability { return ports.Ordinal }

func (s *Source) EachIndexed(ctx context.Context, fn func(index int, record any) error) error {
	rc, err := s.open()
	if err != nil {
		return err
	}
	defer rc.Close()

	br := bufio.NewReader(rc)
	dec := json.NewDecoder(br)
	if array, err := startsArray(br); err != nil {
		return err
	} else if array {
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("read array: %w", err)
		}
	}

	for i := 0; dec.More(); i++ {
		var rec any
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("decode value %d: %w", i, err)
		}
		if err := fn(i, rec); err != nil {
			return err
		}
	}
	return nil
}

// startsArray peeks past leading whitespace.
func startsArray(br *bufio.Reader) (bool, error) {
	for {
		b, err := br.Peek(1)
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			_, _ = br.ReadByte()
			continue
		}
		return b[0] == '[', nil
	}
}
