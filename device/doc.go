// Package device provides the stateful device model on top of the nxt
// command protocol: a Brick with motor and sensor ports, single and
// synchronized motors, the passive-analog and digital (I2C) sensor
// variants, and a polling engine with edge-triggered events.
//
// Devices are constructed detached, attached to a Brick port, and come to
// life when the Brick connects:
//
//	brick, err := device.NewBrick(transport)
//	if err != nil { ... }
//	touch := device.NewTouchSensor()
//	if err := brick.AttachSensor(touch, nxt.Port1); err != nil { ... }
//	touch.OnPressed(func() { ... })
//	if err := brick.Connect(); err != nil { ... }
//	defer brick.Disconnect()
//
// Connect pushes every attached sensor's type/mode configuration to the
// brick, starts auto-polling, and starts the keep-alive task. Disconnect
// stops polling and keep-alive before closing the transport, so no exchange
// races the teardown.
//
// Edge events fire only on a qualifying transition between two consecutive
// polls: the first poll after construction establishes the baseline and
// never fires, and polls while disconnected are no-ops.
package device
