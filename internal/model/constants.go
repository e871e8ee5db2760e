package model

// Dancer count bounds
const (
	MinDancers = 1
	MaxDancers = 20
)

// Stage coordinates, in percent
const (
	StageMin   = 0.0
	StageMax   = 100.0
	StageMidY  = 50.0
	BackLineY  = 100.0
	SoloStageX = 50.0
)
