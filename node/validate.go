package node

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

type constraints struct {
	Module   string `validate:"notblank,max=50"`
	Template string `validate:"max=30"`
	Folder   Folder `validate:"required"`
	Block    Block  `validate:"required"`
	Position int    `validate:"min=0,max=32767"`
	Priority int    `validate:"min=-32768,max=32767"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(err)
		}
	})
	return validate
}

// Validate checks that module, folder and block are set and that the column
// limits hold. Position and priority are smallint columns.
func (n *Node) Validate() error {
	c := constraints{
		Module:   n.module,
		Template: n.template,
		Position: n.position,
		Priority: n.priority,
	}
	// typed nils must not pass "required"
	if !isNil(n.folder) {
		c.Folder = n.folder
	}
	if !isNil(n.block) {
		c.Block = n.block
	}
	err := getValidator().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe.Field())] = fe.Tag()
	}
	return &ValidationError{Fields: fields}
}

func fieldName(f string) string {
	switch f {
	case "Module":
		return "module"
	case "Template":
		return "template"
	case "Folder":
		return RelationFolder
	case "Block":
		return RelationBlock
	case "Position":
		return "position"
	case "Priority":
		return "priority"
	}
	return f
}
