// Command sstdump prints every record of one SSTable file.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"stones/pkg/persistence"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: sstdump <file.sst>")
		os.Exit(2)
	}

	if err := dump(os.Stdout, os.Args[1]); err != nil {
		fmt.Fprintln(os.Stderr, "sstdump:", err)
		os.Exit(1)
	}
}

func dump(out io.Writer, path string) error {
	records, err := persistence.NewSSTable(path).Read()
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	for _, r := range records {
		if r.Tombstone {
			fmt.Fprintf(w, "%q\t<tombstone>\n", r.Key)
			continue
		}
		fmt.Fprintf(w, "%q\t%q\n", r.Key, r.Value)
	}
	fmt.Fprintf(w, "%d records\n", len(records))

	return w.Flush()
}
