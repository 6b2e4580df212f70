package term

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"golang.org/x/xerrors"
)

// Terminal обеспечивает интерактивный вход пользовательской сессии MTProto через терминал.
// Реализует интерфейс auth.UserAuthenticator.
type Terminal struct {
	phone        string
	in           *bufio.Reader
	out          io.Writer
	readPassword func() ([]byte, error)
}

var _ auth.UserAuthenticator = (*Terminal)(nil)

// Option настраивает Terminal.
type Option func(*Terminal)

// WithIO подменяет ввод и вывод. Пароль в этом случае читается из того же ввода.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(t *Terminal) {
		t.in = bufio.NewReader(in)
		t.out = out
		t.readPassword = func() ([]byte, error) {
			line, err := t.readLine()
			return []byte(line), err
		}
	}
}

// NewTerminal создает новый экземпляр Terminal.
func NewTerminal(phone string, opts ...Option) *Terminal {
	t := &Terminal{
		phone:        phone,
		in:           bufio.NewReader(os.Stdin),
		out:          os.Stdout,
		readPassword: termReadPassword,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Phone возвращает номер телефона из конфигурации или запрашивает его.
func (t *Terminal) Phone(_ context.Context) (string, error) {
	if t.phone != "" {
		return t.phone, nil
	}
	fmt.Fprint(t.out, "Enter phone number: ")
	phone, err := t.readLine()
	if err != nil {
		return "", xerrors.Errorf("failed to read phone: %w", err)
	}
	return phone, nil
}

// Password запрашивает пароль 2FA без эха.
func (t *Terminal) Password(_ context.Context) (string, error) {
	fmt.Fprint(t.out, "Enter 2FA password: ")
	pwd, err := t.readPassword()
	if err != nil {
		return "", xerrors.Errorf("failed to read password: %w", err)
	}
	fmt.Fprintln(t.out)
	return strings.TrimSpace(string(pwd)), nil
}

// AcceptTermsOfService принимает Условия обслуживания.
func (t *Terminal) AcceptTermsOfService(_ context.Context, tos tg.HelpTermsOfService) error {
	fmt.Fprintf(t.out, "Accepting Terms of Service: %s\n", tos.Text)
	return nil
}

// Code запрашивает код подтверждения.
func (t *Terminal) Code(_ context.Context, _ *tg.AuthSentCode) (string, error) {
	fmt.Fprint(t.out, "Enter code: ")
	code, err := t.readLine()
	if err != nil {
		return "", xerrors.Errorf("failed to read code: %w", err)
	}
	return code, nil
}

// SignUp не поддерживается: для разрешения упоминаний нужен существующий аккаунт.
func (t *Terminal) SignUp(_ context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, xerrors.New("signup not implemented")
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
