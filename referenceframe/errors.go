package referenceframe

import "github.com/pkg/errors"

// NewFrameMissingError returns an error indicating that no transform has been published for the given frame.
func NewFrameMissingError(frameName string) error {
	return errors.Errorf("frame with name %q not in transform buffer", frameName)
}

// NewFramesDisconnectedError returns an error indicating that two frames do not share a root.
func NewFramesDisconnectedError(from, to string) error {
	return errors.Errorf("frames %q and %q are not connected by any published transforms", from, to)
}

// NewFrameCycleError returns an error indicating that walking up from a frame revisited it.
func NewFrameCycleError(frameName string) error {
	return errors.Errorf("published transforms form a cycle through frame %q", frameName)
}

// NewInvalidTransformError returns an error indicating that a transform cannot be stored.
func NewInvalidTransformError(tf Transform, reason string) error {
	return errors.Errorf("invalid transform %q -> %q: %s", tf.Parent, tf.Child, reason)
}

// NewMissingReferenceFrameError returns an error indicating that a message is missing its reference frame.
func NewMissingReferenceFrameError(msg interface{}) error {
	return errors.Errorf("missing reference frame in protobuf message of type %T", msg)
}
