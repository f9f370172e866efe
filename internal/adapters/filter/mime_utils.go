package filter

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/mikey/vendor-order-intake/internal/core"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// maxPartDepth bounds multipart nesting
const maxPartDepth = 10

var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// header is satisfied by both mail.Header and textproto.MIMEHeader
type header interface {
	Get(key string) string
}

type collected struct {
	plain       strings.Builder
	html        strings.Builder
	attachments []core.Attachment
}

// ParseMessage turns a raw RFC 5322 message into a core.Email. Text and HTML
// bodies are collected from every multipart level with transfer encodings and
// charsets decoded; other parts are listed as attachments.
func ParseMessage(raw []byte) (*core.Email, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse email message: %w", err)
	}

	email := &core.Email{
		Headers: make(map[string][]string, len(msg.Header)),
		Subject: decodeHeader(msg.Header.Get("Subject")),
		From:    headerAddress(msg.Header.Get("From")),
	}
	for key, values := range msg.Header {
		email.Headers[key] = values
	}
	if to := msg.Header.Get("To"); to != "" {
		parser := mail.AddressParser{WordDecoder: wordDecoder}
		if list, err := parser.ParseList(to); err == nil {
			for _, addr := range list {
				email.To = append(email.To, addr.Address)
			}
		}
	}
	if date, err := msg.Header.Date(); err == nil {
		email.Date = date
	}

	var parts collected
	if err := collectParts(msg.Header, msg.Body, &parts, 0); err != nil {
		return nil, err
	}
	email.PlainText = strings.TrimRight(parts.plain.String(), "\r\n")
	email.HTML = parts.html.String()
	email.Attachments = parts.attachments

	return email, nil
}

func collectParts(h header, body io.Reader, out *collected, depth int) error {
	if depth > maxPartDepth {
		return errors.New("multipart nesting too deep")
	}

	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		// Missing or broken Content-Type means plain text
		mediaType, params = "text/plain", map[string]string{}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return readText(h, body, params, &out.plain)
		}
		mr := multipart.NewReader(body, boundary)
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				// Keep what was read before a truncated or malformed part
				if out.plain.Len() > 0 || out.html.Len() > 0 {
					return nil
				}
				return fmt.Errorf("failed to read multipart body: %w", err)
			}
			if err := collectParts(part.Header, part, out, depth+1); err != nil {
				return err
			}
		}
	}

	disposition, dispParams, _ := mime.ParseMediaType(h.Get("Content-Disposition"))
	filename := dispParams["filename"]
	if filename == "" {
		filename = params["name"]
	}

	switch {
	case disposition == "attachment" || (filename != "" && !strings.HasPrefix(mediaType, "text/")):
		n, err := io.Copy(io.Discard, decodeTransfer(h, body))
		if err != nil {
			return fmt.Errorf("failed to read attachment %s: %w", filename, err)
		}
		out.attachments = append(out.attachments, core.Attachment{
			Filename:    decodeHeader(filename),
			ContentType: mediaType,
			Size:        int(n),
		})
		return nil
	case mediaType == "text/html":
		return readText(h, body, params, &out.html)
	case mediaType == "text/plain":
		if err := readText(h, body, params, &out.plain); err != nil {
			return err
		}
		out.plain.WriteString("\n")
		return nil
	default:
		_, err := io.Copy(io.Discard, body)
		return err
	}
}

func readText(h header, body io.Reader, params map[string]string, dst *strings.Builder) error {
	r := decodeTransfer(h, body)

	if charset := strings.ToLower(params["charset"]); charset != "" && charset != "utf-8" && charset != "us-ascii" {
		if decoded, err := charsetReader(charset, r); err == nil {
			r = decoded
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read message text: %w", err)
	}
	dst.Write(data)
	return nil
}

// decodeTransfer undoes the Content-Transfer-Encoding. multipart.Reader
// already strips quoted-printable from parts and removes the header.
func decodeTransfer(h header, body io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(h.Get("Content-Transfer-Encoding"))) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, body)
	case "quoted-printable":
		return quotedprintable.NewReader(body)
	default:
		return body
	}
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %s: %w", charset, err)
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// decodeHeader decodes RFC 2047 encoded words, returning the input on failure
func decodeHeader(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

func headerAddress(value string) string {
	if value == "" {
		return ""
	}
	parser := mail.AddressParser{WordDecoder: wordDecoder}
	if addr, err := parser.Parse(value); err == nil {
		return addr.Address
	}
	return decodeHeader(value)
}
