package charstream

import (
	"bufio"
	"io"
	"os"
)

// ============================================================================
// ReaderCharStream - 基于 io.Reader
// ============================================================================

// ReaderCharStream 基于 io.Reader 的字符流
//
// 预读的字符保存在 pending 中，LA 只会在不足时继续读取。
// 一旦发生读取错误，后续调用都返回 EOS 和同一个 ReadError。
type ReaderCharStream struct {
	r           *bufio.Reader
	closer      io.Closer
	description string
	pending     []rune
	eof         bool
	err         error
	closed      bool
	stripBOM    bool
}

// NewReader 创建基于 io.Reader 的字符流
//
// 如果 r 同时实现了 io.Closer，Close 时会一并关闭。
func NewReader(r io.Reader, description string) *ReaderCharStream {
	if description == "" {
		description = "<reader>"
	}
	s := &ReaderCharStream{
		r:           bufio.NewReader(r),
		description: description,
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// NewInputStream 创建基于字节流的字符流
//
// 按 UTF-8 解码，并去掉开头的 BOM。
func NewInputStream(rc io.ReadCloser, description string) *ReaderCharStream {
	if description == "" {
		description = "<input>"
	}
	return &ReaderCharStream{
		r:           bufio.NewReader(rc),
		closer:      rc,
		description: description,
		stripBOM:    true,
	}
}

// fill 保证 pending 中至少有 k 个字符（或已到达流末尾）
func (s *ReaderCharStream) fill(k int) error {
	for len(s.pending) < k && !s.eof {
		c, _, err := s.r.ReadRune()
		if err == io.EOF {
			s.eof = true
			break
		}
		if err != nil {
			s.err = &ReadError{Description: s.description, Err: err}
			return s.err
		}
		if s.stripBOM {
			s.stripBOM = false
			if c == '\uFEFF' {
				continue
			}
		}
		s.pending = append(s.pending, c)
	}
	return nil
}

func (s *ReaderCharStream) LA(k int) (rune, error) {
	checkLA(k)
	if s.closed {
		return EOS, ErrClosed
	}
	if s.err != nil {
		return EOS, s.err
	}
	if err := s.fill(k); err != nil {
		return EOS, err
	}
	if k > len(s.pending) {
		return EOS, nil
	}
	return s.pending[k-1], nil
}

func (s *ReaderCharStream) Consume() (rune, error) {
	c, err := s.LA(1)
	if err != nil || c == EOS {
		return c, err
	}
	s.pending = s.pending[1:]
	return c, nil
}

func (s *ReaderCharStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.pending = nil
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			return &ReadError{Description: s.description, Err: err}
		}
	}
	return nil
}

func (s *ReaderCharStream) Description() string {
	return s.description
}

// ============================================================================
// FileCharStream - 基于文件
// ============================================================================

// FileCharStream 基于文件路径的字符流，第一次读取时才打开文件
type FileCharStream struct {
	path   string
	inner  *ReaderCharStream
	err    error
	closed bool
}

// NewFile 创建文件字符流
func NewFile(path string) *FileCharStream {
	return &FileCharStream{path: path}
}

func (f *FileCharStream) open() error {
	if f.inner != nil || f.err != nil {
		return f.err
	}
	file, err := os.Open(f.path)
	if err != nil {
		f.err = &ReadError{Description: f.path, Err: err}
		return f.err
	}
	f.inner = NewInputStream(file, f.path)
	return nil
}

func (f *FileCharStream) LA(k int) (rune, error) {
	checkLA(k)
	if f.closed {
		return EOS, ErrClosed
	}
	if err := f.open(); err != nil {
		return EOS, err
	}
	return f.inner.LA(k)
}

func (f *FileCharStream) Consume() (rune, error) {
	if f.closed {
		return EOS, ErrClosed
	}
	if err := f.open(); err != nil {
		return EOS, err
	}
	return f.inner.Consume()
}

func (f *FileCharStream) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.inner != nil {
		return f.inner.Close()
	}
	return nil
}

func (f *FileCharStream) Description() string {
	return f.path
}
