package models

// KickType labels a taekwondo technique
type KickType string

const (
	KickRoundhouse   KickType = "dollyo_chagi"
	KickFront        KickType = "ap_chagi"
	KickSide         KickType = "yeop_chagi"
	KickBack         KickType = "dwi_chagi"
	KickAxe          KickType = "naeryeo_chagi"
	KickHook         KickType = "huryo_chagi"
	KickCrescent     KickType = "bandal_chagi"
	KickSpinningHook KickType = "mom_dollyo_chagi"
)

var kickNames = map[KickType]string{
	KickRoundhouse:   "Roundhouse Kick (Dollyo Chagi)",
	KickFront:        "Front Kick (Ap Chagi)",
	KickSide:         "Side Kick (Yeop Chagi)",
	KickBack:         "Back Kick (Dwi Chagi)",
	KickAxe:          "Axe Kick (Naeryeo Chagi)",
	KickHook:         "Hook Kick (Huryo Chagi)",
	KickCrescent:     "Crescent Kick (Bandal Chagi)",
	KickSpinningHook: "Spinning Kick (Mom Dollyo Chagi)",
}

// KnownKickTypes lists the taxonomy in display order
var KnownKickTypes = []KickType{
	KickRoundhouse, KickFront, KickSide, KickBack,
	KickAxe, KickHook, KickCrescent, KickSpinningHook,
}

// Known reports whether the label is part of the taxonomy
func (k KickType) Known() bool {
	_, ok := kickNames[k]
	return ok
}

// DisplayName returns the human-readable name. Unknown labels are returned as-is.
func (k KickType) DisplayName() string {
	if name, ok := kickNames[k]; ok {
		return name
	}
	return string(k)
}
