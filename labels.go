package segmask

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LoadLabels reads the class labels the model was trained on from the given
// text file.  It should contain one label per line, the line number (from
// zero) being the class index.
func LoadLabels(file string) ([]string, error) {

	if err := CheckReadable(file); err != nil {
		return nil, err
	}

	f, err := os.Open(file)

	if err != nil {
		return nil, errors.Wrapf(ErrFileNotFound, "%s: %v", file, err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var labels []string

	for scanner.Scan() {
		labels = append(labels, strings.TrimSpace(scanner.Text()))
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(ErrIO, "reading labels %s: %v", file, err)
	}

	// drop trailing blank lines left by editors
	for len(labels) > 0 && labels[len(labels)-1] == "" {
		labels = labels[:len(labels)-1]
	}

	return labels, nil
}

// LabelFor returns the label of class index id, or the index as text if the
// labels do not cover it
func LabelFor(labels []string, id int) string {

	if id >= 0 && id < len(labels) && labels[id] != "" {
		return labels[id]
	}

	return "class" + strconv.Itoa(id)
}
