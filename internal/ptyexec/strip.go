package ptyexec

import "github.com/hinshun/vt10x"

// screenCols and screenRows size the virtual terminal used to derive
// stripped_output. Zero scrollback: only the final screen contents
// matter, which is exactly what makes downstream event parsing immune
// to cursor movement, line clears, and spinner redraws.
const (
	screenCols = 80
	screenRows = 24
)

// stripANSI feeds raw through a VT100-compatible virtual terminal and
// returns the resulting screen contents as plain text.
func stripANSI(raw []byte) string {
	vt := vt10x.New(vt10x.WithSize(screenCols, screenRows))
	_, _ = vt.Write(raw)
	vt.Lock()
	defer vt.Unlock()
	return vt.String()
}
