package main

import (
	"fmt"
	"io"
	"os"

	"github.com/matryer/try"
)

func openInputFile(input string) (io.ReadCloser, error) {
	var r *os.File
	err := try.Do(func(attempt int) (bool, error) {
		var ferr error
		r, ferr = os.Open(input)
		return attempt < 5 && !os.IsNotExist(ferr), ferr
	})
	if err != nil {
		return nil, fmt.Errorf("open input file %q: %w", input, err)
	}
	return r, nil
}

// openOutputFile truncates an existing file, keeping its permissions.
func openOutputFile(output string) (*os.File, error) {
	var w *os.File
	err := try.Do(func(attempt int) (bool, error) {
		var ferr error
		w, ferr = os.OpenFile(output, os.O_WRONLY|os.O_TRUNC, 0666)
		return attempt < 5 && !os.IsNotExist(ferr) && !os.IsPermission(ferr), ferr
	})
	if err != nil {
		return nil, fmt.Errorf("open output file %q: %w", output, err)
	}
	return w, nil
}

func readFile(filename string) ([]byte, error) {
	r, err := openInputFile(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", filename, err)
	}
	return b, nil
}

func writeFile(filename string, b []byte) error {
	w, err := openOutputFile(filename)
	if err != nil {
		return err
	}
	if _, err = w.Write(b); err != nil {
		w.Close()
		return fmt.Errorf("write %q: %w", filename, err)
	}
	return w.Close()
}
