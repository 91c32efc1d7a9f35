package segmask

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	test.That(t, os.WriteFile(path, []byte("person\r\n bicycle \ncar\n\n\n"), 0o600), test.ShouldBeNil)

	labels, err := LoadLabels(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, labels, test.ShouldResemble, []string{"person", "bicycle", "car"})

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	test.That(t, err, test.ShouldWrap, ErrFileNotFound)
}

func TestLabelFor(t *testing.T) {
	labels := []string{"person", ""}

	test.That(t, LabelFor(labels, 0), test.ShouldEqual, "person")
	test.That(t, LabelFor(labels, 1), test.ShouldEqual, "class1")
	test.That(t, LabelFor(labels, 7), test.ShouldEqual, "class7")
	test.That(t, LabelFor(nil, -1), test.ShouldEqual, "class-1")
}
