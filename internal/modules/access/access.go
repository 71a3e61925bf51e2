// README: Access guard; decides per navigation whether a session may see a view and which variant.
package access

import (
	"semas/internal/modules/directory"
	"semas/internal/modules/session"
)

type View string

const (
	ViewWelcome      View = "welcome"
	ViewAuth         View = "auth"
	ViewHome         View = "home"
	ViewServices     View = "services"
	ViewBook         View = "book"
	ViewTrack        View = "track"
	ViewChat         View = "chat"
	ViewProfile      View = "profile"
	ViewJobQueue     View = "job_queue"
	ViewConsumerHome View = "consumer_home"
)

// LoginPath is where anonymous sessions are sent.
const LoginPath = "/auth"

func ParseView(s string) (View, bool) {
	v := View(s)
	switch v {
	case ViewWelcome, ViewAuth, ViewHome, ViewServices, ViewBook, ViewTrack,
		ViewChat, ViewProfile, ViewJobQueue, ViewConsumerHome:
		return v, true
	}
	return "", false
}

// Public views render without a session.
func (v View) Public() bool {
	return v == ViewWelcome || v == ViewAuth
}

type Outcome int

const (
	OutcomeDefer Outcome = iota
	OutcomePermit
	OutcomeRedirectLogin
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDefer:
		return "defer"
	case OutcomePermit:
		return "permit"
	case OutcomeRedirectLogin:
		return "redirect_login"
	}
	return "unknown"
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

type Decision struct {
	Outcome  Outcome `json:"outcome"`
	View     View    `json:"view,omitempty"`
	Redirect string  `json:"redirect,omitempty"`
}

// HomeFor is the variant of the home view a role lands on.
func HomeFor(role directory.Role) View {
	switch role {
	case directory.RoleTechnician, directory.RoleAdmin:
		return ViewJobQueue
	case directory.RoleCustomer:
		return ViewConsumerHome
	}
	return ViewWelcome
}

// Decide never decides while the session is still loading. Role-specific
// home variants requested by the other role resolve to that role's home.
func Decide(state session.State, user *directory.User, target View) Decision {
	if !state.Ready() {
		return Decision{Outcome: OutcomeDefer}
	}
	if target.Public() {
		return Decision{Outcome: OutcomePermit, View: target}
	}
	if state != session.StateAuthenticated || user == nil {
		return Decision{Outcome: OutcomeRedirectLogin, Redirect: LoginPath}
	}

	switch target {
	case ViewHome, ViewJobQueue, ViewConsumerHome:
		return Decision{Outcome: OutcomePermit, View: HomeFor(user.Role)}
	}
	return Decision{Outcome: OutcomePermit, View: target}
}
