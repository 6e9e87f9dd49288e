package charstream

// StringCharStream 基于内存字符串的字符流
type StringCharStream struct {
	runes       []rune
	pos         int
	description string
	closed      bool
}

// NewString 创建字符串字符流，description 为空时使用 "<string>"
func NewString(s, description string) *StringCharStream {
	if description == "" {
		description = "<string>"
	}
	return &StringCharStream{
		runes:       []rune(s),
		description: description,
	}
}

func (s *StringCharStream) LA(k int) (rune, error) {
	checkLA(k)
	if s.closed {
		return EOS, ErrClosed
	}
	i := s.pos + k - 1
	if i >= len(s.runes) {
		return EOS, nil
	}
	return s.runes[i], nil
}

func (s *StringCharStream) Consume() (rune, error) {
	if s.closed {
		return EOS, ErrClosed
	}
	if s.pos >= len(s.runes) {
		return EOS, nil
	}
	c := s.runes[s.pos]
	s.pos++
	return c, nil
}

func (s *StringCharStream) Close() error {
	s.closed = true
	return nil
}

func (s *StringCharStream) Description() string {
	return s.description
}
