package checkpoint

// Merge overlays an auxiliary checkpoint onto a primary one.
//
// With a nil auxiliary the primary record is returned as is. Otherwise the
// result is a new record whose configuration is the primary's and whose
// parameters are the primary's with every auxiliary entry written over it.
// Names are compared as given, so callers merging legacy checkpoints rewrite
// both records first to let the auxiliary win on canonical names.
func Merge(primary, aux *Record) *Record {
	if aux == nil {
		return primary
	}

	params := make(StateDict, len(primary.Params)+len(aux.Params))
	for name, raw := range primary.Params {
		params[name] = raw
	}
	for name, raw := range aux.Params {
		params[name] = raw
	}

	return &Record{
		Config: primary.Config,
		Params: params,
	}
}
