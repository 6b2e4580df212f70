//go:build !unix

package term

import (
	"bufio"
	"os"
)

func termReadPassword() ([]byte, error) {
	line, err := bufio.NewReader(os.Stdin).ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, err
	}
	return line, nil
}
