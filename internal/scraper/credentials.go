package scraper

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/mydesk/internal/keyring"
)

// ErrNoCredentials is returned when neither the keyring nor the credentials
// file provide a login.
var ErrNoCredentials = errors.New("no portal credentials")

// Credentials is a portal login.
type Credentials struct {
	User     string
	Password string
}

// LoadCredentials returns the keyring password for username when one is
// stored, otherwise the login and password read from the first two non-blank
// lines of file.
func LoadCredentials(username, file string) (Credentials, error) {
	if username != "" {
		pwd, err := keyring.GetPortalPassword(username)
		if err == nil {
			return Credentials{User: username, Password: pwd}, nil
		}
		if !errors.Is(err, keyring.ErrNotFound) && !errors.Is(err, keyring.ErrKeyringUnavailable) {
			return Credentials{}, err
		}
	}

	data, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, fmt.Errorf("%w: store a password with 'mydesk credentials set' or create %s", ErrNoCredentials, file)
		}
		return Credentials{}, fmt.Errorf("failed to read %s: %w", file, err)
	}
	return parseCredentials(data, file)
}

func parseCredentials(data []byte, file string) (Credentials, error) {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return Credentials{}, fmt.Errorf("%w: %s must hold the login then the password on two lines", ErrNoCredentials, file)
	}
	return Credentials{User: lines[0], Password: lines[1]}, nil
}
