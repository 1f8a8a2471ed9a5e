package transfer

// UploadSession collects numbered chunks for one announced upload target.
// Chunks may arrive in any order and with gaps; assembly substitutes empty
// bytes for indices that never arrived.
type UploadSession struct {
	Name   string
	Total  int
	chunks map[int][]byte
}

func NewUploadSession(name string, total int) *UploadSession {
	return &UploadSession{
		Name:   name,
		Total:  total,
		chunks: make(map[int][]byte, total),
	}
}

// AddChunk stores data at index. Indices outside 0..Total-1 are dropped so
// the chunk map never holds out-of-range entries.
func (u *UploadSession) AddChunk(index int, data []byte) bool {
	if index < 0 || index >= u.Total {
		return false
	}
	u.chunks[index] = data
	return true
}

// Received reports how many distinct chunk indices have arrived.
func (u *UploadSession) Received() int {
	return len(u.chunks)
}

// Assemble concatenates chunks in index order, gap-filling missing indices
// with empty bytes.
func (u *UploadSession) Assemble() []byte {
	out := make([]byte, 0)
	for i := 0; i < u.Total; i++ {
		out = append(out, u.chunks[i]...)
	}
	return out
}
