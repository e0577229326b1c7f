package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-maildir"

	"ciphercomms/internal/domain"
)

// OpenMaildirMessages returns a message store keeping one maildir per
// conversation under root. Each record is one JSON message file.
func OpenMaildirMessages(root string) (*Messages, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, err
	}
	return newMessages(&maildirMessages{root: root}), nil
}

type maildirMessages struct {
	root string
}

// dir maps a conversation to its maildir, refusing ids that would escape root.
func (b *maildirMessages) dir(conv domain.ConversationID) (maildir.Dir, error) {
	name := string(conv)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid conversation id %q", name)
	}
	return maildir.Dir(filepath.Join(b.root, name)), nil
}

// ensure creates the maildir on first use.
func (b *maildirMessages) ensure(conv domain.ConversationID) (maildir.Dir, error) {
	dir, err := b.dir(conv)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filepath.Join(string(dir), "cur")); os.IsNotExist(err) {
		if err := os.MkdirAll(string(dir), 0o700); err != nil {
			return "", err
		}
		if err := dir.Init(); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func (b *maildirMessages) insert(rec domain.MessageRecord) error {
	dir, err := b.ensure(rec.ConversationID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	delivery, err := maildir.NewDelivery(string(dir))
	if err != nil {
		return err
	}
	if _, err := delivery.Write(data); err != nil {
		_ = delivery.Abort()
		return err
	}
	return delivery.Close()
}

func (b *maildirMessages) load(conv domain.ConversationID) ([]domain.MessageRecord, error) {
	msgs, err := b.messages(conv)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MessageRecord, 0, len(msgs))
	for _, msg := range msgs {
		rec, err := readRecord(msg)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", msg.Key(), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (b *maildirMessages) remove(conv domain.ConversationID, id domain.MessageID) error {
	msgs, err := b.messages(conv)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		rec, err := readRecord(msg)
		if err != nil {
			return fmt.Errorf("read message %s in %s: %w", msg.Key(), conv, err)
		}
		if rec.ID == id {
			return msg.Remove()
		}
	}
	return nil
}

// messages lists every message in conv's maildir, moving new ones to cur first.
func (b *maildirMessages) messages(conv domain.ConversationID) ([]*maildir.Message, error) {
	dir, err := b.dir(conv)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(string(dir), "cur")); os.IsNotExist(err) {
		return nil, nil
	}
	if _, err := dir.Unseen(); err != nil {
		return nil, err
	}
	return dir.Messages()
}

func readRecord(msg *maildir.Message) (domain.MessageRecord, error) {
	rc, err := msg.Open()
	if err != nil {
		return domain.MessageRecord{}, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return domain.MessageRecord{}, err
	}
	var rec domain.MessageRecord
	return rec, json.Unmarshal(data, &rec)
}
