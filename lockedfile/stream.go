package lockedfile

import "os"

// nonClosingStream shields a *os.File from being closed by a caller-supplied
// read/write callback. It deliberately does not implement io.Closer, so a
// callback that type-asserts its stream to look for Close will fail rather
// than reach through to the file the persister still owns.
type nonClosingStream struct {
	f *os.File
}

func (s nonClosingStream) Read(p []byte) (int, error)  { return s.f.Read(p) }
func (s nonClosingStream) Write(p []byte) (int, error) { return s.f.Write(p) }
func (s nonClosingStream) Seek(offset int64, whence int) (int64, error) {
	return s.f.Seek(offset, whence)
}
