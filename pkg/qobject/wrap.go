package qobject

// wrap decides what a recursive read returns for v. Records and sequences
// come back as their Handle; everything the registry should not own comes
// back unchanged. promote stores a freshly addressed sequence back into the
// parent so the next read finds the same Handle.
func (c *Container) wrap(v any, promote func(*[]any)) (any, error) {
	if !objectLike(v) {
		return v, nil
	}
	if _, ok := v.(Ref); ok {
		return v, nil
	}
	if _, ok := v.(*Handle); ok {
		return v, nil
	}
	if s, ok := v.([]any); ok {
		p := &s
		promote(p)
		v = p
	}
	if IsOpaque(v) {
		return v, nil
	}
	frozen := IsFrozen(v)

	flags := FlagRecursive
	if frozen {
		flags |= FlagImmutable
	} else if c.dev {
		if err := VerifySerializable(v); err != nil {
			return nil, c.reject(err)
		}
	}
	h, err := c.GetOrCreate(v, flags)
	if err != nil {
		return nil, err
	}
	return h, nil
}
