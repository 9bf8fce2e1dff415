package softbody_test

import (
	"io"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestSoftbody(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Softbody Suite")
}
