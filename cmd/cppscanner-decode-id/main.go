// Command cppscanner-decode-id decodes the packed FilePosition values
// that show up in a snapshot database (the startPosition/endPosition
// columns) back into a line and column. It does not decode SymbolIDs
// or FileIDs. It is a debugging aid, not part of the scan/merge
// pipeline.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/strandfield/cppscanner-go/internal/model"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: cppscanner-decode-id <position>...")
		fmt.Fprintln(os.Stderr, "  position: a packed startPosition/endPosition value, decimal or 0x-prefixed hex")
		os.Exit(1)
	}

	for _, arg := range os.Args[1:] {
		v, err := strconv.ParseUint(arg, 0, 32)
		if err != nil {
			fmt.Printf("%s: not an integer: %v\n", arg, err)
			continue
		}

		pos := model.FilePositionFromBits(uint32(v))
		fmt.Printf("%s -> line=%d column=%d (packed=0x%08x)\n", arg, pos.Line(), pos.Column(), pos.Bits())
	}
}
