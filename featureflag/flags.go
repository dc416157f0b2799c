package featureflag

type Flag string

const (
	FlagDisableExaggeration       Flag = "DISABLE_EXAGGERATION"
	FlagDisableBatchInterpolation Flag = "DISABLE_BATCH_INTERPOLATION"
	FlagDisableProbe              Flag = "DISABLE_PROBE"
)
