package chat

import (
	"time"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/remote"
)

// LatestLimit is the number of messages shown on the Chat page.
const LatestLimit = 50

type Message struct {
	ID        int64     `json:"id"`
	Autor     string    `json:"autor"`
	Contenido string    `json:"contenido"`
	CreadoEn  time.Time `json:"creado_en"`
}

func (m Message) RecordID() int64 { return m.ID }

type Form struct {
	Contenido string `json:"contenido" validate:"notblank,max=2000"`
}

func (f *Form) Validate() error {
	f.Contenido = core.CleanString(f.Contenido)
	return core.ValidateStruct(f)
}

func (f Form) payload(author string) remote.Row {
	return remote.Row{"autor": author, "contenido": f.Contenido}
}
