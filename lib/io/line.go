package iolib

import "io"

const (
	cr byte = '\r'
	lf byte = '\n'
)

// ReadLine reads a single line from r into buf, one byte at a time.
//
// A line ends with LF, CR LF or a sole CR. The terminator is stored as a
// single LF, so an empty line yields n == 1. When buf fills up before a
// terminator is seen, ReadLine returns len(buf) and a nil error; callers tell
// the two apart by checking the last byte. If r fails first, the bytes read
// so far are returned together with the error.
func ReadLine(r io.ByteScanner, buf []byte) (n int, err error) {
	for n < len(buf) {
		c, err := r.ReadByte()
		if err != nil {
			return n, err
		}

		if c == cr {
			next, err := r.ReadByte()
			switch {
			case err == io.EOF:
				// Sole CR at the end of input still terminates the line.
			case err != nil:
				return n, err
			case next != lf:
				if err := r.UnreadByte(); err != nil {
					return n, err
				}
			}
			c = lf
		}

		buf[n] = c
		n++

		if c == lf {
			return n, nil
		}
	}

	return n, nil
}

// IsTerminated reports whether a line returned by [ReadLine] ended with a
// terminator rather than running out of space or input.
func IsTerminated(line []byte) bool {
	return len(line) > 0 && line[len(line)-1] == lf
}
