// Package audit writes the append-only staff activity trail and reads the
// patient event log. Writes are best-effort: a failed insert is logged and
// discarded so it never fails the operation that triggered it.
package audit

// Action identifies what a staff member did.
type Action string

const (
	ActionLogin                 Action = "login"
	ActionLogout                Action = "logout"
	ActionPasswordChange        Action = "password_change"
	ActionProfileUpdate         Action = "profile_update"
	ActionStampIncrement        Action = "stamp_increment"
	ActionStampSet              Action = "stamp_set"
	ActionBroadcastSend         Action = "broadcast_send"
	ActionRewardComplete        Action = "reward_exchange_complete"
	ActionRewardCancel          Action = "reward_exchange_cancel"
	ActionRewardDelete          Action = "reward_exchange_delete"
	ActionFamilyCreate          Action = "family_create"
	ActionFamilyUpdate          Action = "family_update"
	ActionFamilyDelete          Action = "family_delete"
	ActionFamilyMemberAdd       Action = "family_member_add"
	ActionFamilyMemberRemove    Action = "family_member_remove"
	ActionSurveyTargetsDistrib  Action = "survey_targets_distribute"
	ActionSurveyAnswerReset     Action = "survey_answer_reset"
	ActionSurveyLiffFlagUpdate  Action = "survey_liff_flag_update"
	ActionNextVisitMemoUpdate   Action = "next_visit_memo_update"
	ActionClinicSettingsUpdate  Action = "clinic_settings_update"
)

// Detail is the tagged payload recorded with an action. Each payload type is
// bound to exactly one action so the columns an action records are checked at
// compile time instead of living in a free-form map.
type Detail interface {
	Action() Action
}

// LoginDetail records who logged in and how.
type LoginDetail struct {
	Username string `json:"username"`
	Legacy   bool   `json:"legacy"`
}

func (LoginDetail) Action() Action { return ActionLogin }

// LogoutDetail records a logout. No extra columns.
type LogoutDetail struct{}

func (LogoutDetail) Action() Action { return ActionLogout }

// PasswordChangeDetail records a staff password rotation.
type PasswordChangeDetail struct{}

func (PasswordChangeDetail) Action() Action { return ActionPasswordChange }

// ProfileUpdateDetail records which profile fields were edited.
type ProfileUpdateDetail struct {
	Fields []string `json:"fields"`
}

func (ProfileUpdateDetail) Action() Action { return ActionProfileUpdate }

// StampIncrementDetail records a stamp delta applied to a profile.
type StampIncrementDetail struct {
	Delta    int `json:"delta"`
	NewCount int `json:"new_count"`
}

func (StampIncrementDetail) Action() Action { return ActionStampIncrement }

// StampSetDetail records a stamp count overwrite.
type StampSetDetail struct {
	NewCount int `json:"new_count"`
}

func (StampSetDetail) Action() Action { return ActionStampSet }

// BroadcastSendDetail records a broadcast's aggregate outcome.
type BroadcastSendDetail struct {
	TargetCount  int `json:"recipient_count"`
	SuccessCount int `json:"success_count"`
	FailedCount  int `json:"failed_count"`
}

func (BroadcastSendDetail) Action() Action { return ActionBroadcastSend }

// RewardActionDetail records a reward exchange transition.
type RewardActionDetail struct {
	Kind        Action `json:"-"`
	CompletedBy string `json:"completed_by,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func (d RewardActionDetail) Action() Action { return d.Kind }

// FamilyChangeDetail records family lifecycle operations.
type FamilyChangeDetail struct {
	Kind       Action `json:"-"`
	UserID     string `json:"user_id,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

func (d FamilyChangeDetail) Action() Action { return d.Kind }

// SurveyDistributeDetail records a target distribution run.
type SurveyDistributeDetail struct {
	SurveyID       string `json:"survey_id"`
	TargetType     string `json:"target_type"`
	TargetCount    int    `json:"target_count"`
	ShowOnLiffOpen bool   `json:"show_on_liff_open"`
}

func (SurveyDistributeDetail) Action() Action { return ActionSurveyTargetsDistrib }

// SurveyResetDetail records a reset of an answered target back to pending.
type SurveyResetDetail struct {
	SurveyID string `json:"survey_id"`
	UserID   string `json:"user_id"`
}

func (SurveyResetDetail) Action() Action { return ActionSurveyAnswerReset }

// SurveyLiffFlagDetail records a bulk show-on-open flag update.
type SurveyLiffFlagDetail struct {
	SurveyID       string `json:"survey_id"`
	ShowOnLiffOpen bool   `json:"show_on_liff_open"`
	UpdatedCount   int    `json:"updated_count"`
}

func (SurveyLiffFlagDetail) Action() Action { return ActionSurveyLiffFlagUpdate }

// MemoUpdateDetail records a next-visit memo edit.
type MemoUpdateDetail struct {
	HasDate bool `json:"has_date"`
	HasMemo bool `json:"has_memo"`
}

func (MemoUpdateDetail) Action() Action { return ActionNextVisitMemoUpdate }

// ClinicSettingsDetail records an operational settings change.
type ClinicSettingsDetail struct {
	QuietHoursEnabled bool   `json:"quiet_hours_enabled"`
	QuietHoursStart   string `json:"quiet_hours_start"`
	QuietHoursEnd     string `json:"quiet_hours_end"`
	Timezone          string `json:"timezone"`
}

func (ClinicSettingsDetail) Action() Action { return ActionClinicSettingsUpdate }
