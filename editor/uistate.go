package editor

import "github.com/eringen/sitecms/content"

// UIState is the ambient state every editor screen shares: which language
// is being edited and which modal, if any, is open. It is passed explicitly
// into views rather than kept per screen.
type UIState struct {
	Locale content.Locale `json:"locale"`
	Modal  string         `json:"modal,omitempty"`
}

// NewUIState starts on the primary locale with no modal open.
func NewUIState() UIState {
	return UIState{Locale: content.LocaleMN}
}

// ToggleLocale switches to the other language.
func (u *UIState) ToggleLocale() {
	u.Locale = u.locale().Other()
}

// SetLocale selects l if it is supported.
func (u *UIState) SetLocale(l content.Locale) {
	if l.Valid() {
		u.Locale = l
	}
}

// OpenModal marks name as the open modal, replacing any other.
func (u *UIState) OpenModal(name string) {
	u.Modal = name
}

// CloseModal closes whatever modal is open.
func (u *UIState) CloseModal() {
	u.Modal = ""
}

// ModalOpen reports whether name is the open modal.
func (u UIState) ModalOpen(name string) bool {
	return name != "" && u.Modal == name
}

// Text resolves v for the active locale.
func (u UIState) Text(v content.Text) string {
	return content.Resolve(v, u.locale())
}

func (u UIState) locale() content.Locale {
	if u.Locale.Valid() {
		return u.Locale
	}
	return content.LocaleMN
}
