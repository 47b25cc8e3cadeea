package api

import "io"

// ProgressFunc receives upload completion percentages. Values are
// monotonically non-decreasing, start at 0, and reach exactly 100 when the
// full body has been transferred.
type ProgressFunc func(percent int)

// progressReader reports percentage milestones as the transport consumes
// the request body.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	last     int
	progress ProgressFunc
}

func newProgressReader(r io.Reader, total int64, progress ProgressFunc) *progressReader {
	return &progressReader{r: r, total: total, progress: progress}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		pct := int(p.read * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		if pct > p.last {
			p.last = pct
			p.progress(pct)
		}
	}
	return n, err
}
