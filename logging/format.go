package logging

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

const timeLayout = "2006-01-02 15:04:05"

// lineFormatter renders "<time> <host>(<user>) [<run>]- LEVEL: message"
type lineFormatter struct{}

func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %v(%v) [%v]- %s: %s\n",
		entry.Time.Format(timeLayout),
		entry.Data[fieldHost],
		entry.Data[fieldUser],
		entry.Data[fieldRun],
		strings.ToUpper(entry.Level.String()),
		entry.Message,
	)
	return b.Bytes(), nil
}
