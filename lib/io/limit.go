package iolib

import "io"

// LimitReader creates new [LimitedReader]
func LimitReader(r io.Reader, n uint) io.Reader { return &LimitedReader{r, n} }

// LimitedReader is uint port of [io.LimitedReader]
type LimitedReader struct {
	R io.Reader // underlying reader
	N uint      // max bytes remaining
}

func (l *LimitedReader) Read(p []byte) (n int, err error) {
	if l.N == 0 {
		return 0, io.EOF
	}
	if uint(len(p)) > l.N {
		p = p[:l.N]
	}
	n, err = l.R.Read(p)
	l.N -= uint(n)
	return
}

// CopyCapped copies at most limit bytes from src into dst and then drains src
// until EOF, so the writer on the other end of src never blocks on us.
// It reports how many bytes were kept and how many were thrown away.
func CopyCapped(dst io.Writer, src io.Reader, limit uint) (kept, discarded int64, err error) {
	kept, err = io.Copy(dst, LimitReader(src, limit))
	if err != nil {
		return kept, 0, err
	}

	discarded, err = io.Copy(io.Discard, src)
	return kept, discarded, err
}
