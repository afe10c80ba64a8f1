package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type Translations map[string]string

type Language struct {
	found bool
	tr    Translations
}

// TransPool loads message catalogs named <lang>.yaml from basePath on first
// use.
type TransPool struct {
	basePath  string
	mutex     sync.Mutex
	languages map[string]*Language
}

func NewTransPool(basePath string) *TransPool {
	return &TransPool{
		basePath:  basePath,
		languages: make(map[string]*Language),
	}
}

func NewLanguage(tr Translations) *Language {
	return &Language{
		found: tr != nil,
		tr:    tr,
	}
}

func loadTranslations(path string) (Translations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tr := make(Translations)
	if err := yaml.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return tr, nil
}

// Get never fails: a missing or broken catalog yields a language that
// returns the text untranslated.
func (tp *TransPool) Get(lang string) *Language {
	tp.mutex.Lock()
	defer tp.mutex.Unlock()
	if l, ok := tp.languages[lang]; ok {
		return l
	}
	l, _ := tp.load(lang)
	tp.languages[lang] = l
	return l
}

// Load reads the catalog for lang up front and reports parse errors.
func (tp *TransPool) Load(lang string) error {
	l, err := tp.load(lang)
	tp.mutex.Lock()
	tp.languages[lang] = l
	tp.mutex.Unlock()
	return err
}

func (tp *TransPool) load(lang string) (*Language, error) {
	if tp.basePath == "" || lang == "" {
		return NewLanguage(nil), nil
	}
	tr, err := loadTranslations(filepath.Join(tp.basePath, filepath.Base(lang)+".yaml"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewLanguage(nil), nil
		}
		return NewLanguage(nil), err
	}
	return NewLanguage(tr), nil
}

func (l *Language) Lang(text string) string {
	if l == nil || !l.found {
		// Language was not found, return the string
		return text
	}
	res, ok := l.tr[text]
	if !ok {
		// Key was not found
		return text
	}
	// Return translated string
	return res
}
