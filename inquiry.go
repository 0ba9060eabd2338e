package mmwave

import (
	"encoding/binary"

	"github.com/behrlich/go-mmwave/internal/proto"
)

// Inquiries are host-initiated frames that expect a response. Each typed
// inquiry validates its argument against the declared domain, checks the
// operating mode, and hands the framed payload to the HAL.
//
// The mode gate follows the module's documentation: standard-mode
// information (presence, motion, body movement, proximity, time for no
// person) cannot be queried while the underlying open function is on, and
// the UOF telemetry and custom-mode parameters cannot be touched while it
// is off. The output switch itself and the system/identity class work in
// either mode.

func (d *Driver) send(op string, payload []byte, ctrl, cmd byte) error {
	if d.state != StateRunning {
		return NewError(op, ErrCodeInvalidState, "driver not running")
	}
	if err := d.hal.SendFrame(payload, ctrl, cmd); err != nil {
		return WrapError(op, err)
	}
	return nil
}

func (d *Driver) sendSentinel(op string, ctrl, cmd byte) error {
	return d.send(op, []byte{proto.InquirySentinel}, ctrl, cmd)
}

// requireNotMode rejects the call when the driver is in the named mode.
func (d *Driver) requireNotMode(op string, m Mode) error {
	if d.Mode() == m {
		return NewError(op, ErrCodeBadMode, "not permitted in "+m.String()+" mode")
	}
	return nil
}

// InquiryHeartbeat asks the module for a liveness reply.
func (d *Driver) InquiryHeartbeat() error {
	return d.sendSentinel("InquiryHeartbeat", proto.CtrlSystem, proto.CmdHeartbeat)
}

// InquiryModuleReset asks the module to reset itself.
func (d *Driver) InquiryModuleReset() error {
	return d.sendSentinel("InquiryModuleReset", proto.CtrlSystem, proto.CmdModuleReset)
}

// InquiryProductModel queries the product model string.
func (d *Driver) InquiryProductModel() error {
	return d.sendSentinel("InquiryProductModel", proto.CtrlIdentity, proto.CmdProductModel)
}

// InquiryProductID queries the product identifier.
func (d *Driver) InquiryProductID() error {
	return d.sendSentinel("InquiryProductID", proto.CtrlIdentity, proto.CmdProductID)
}

// InquiryHardwareModel queries the hardware model.
func (d *Driver) InquiryHardwareModel() error {
	return d.sendSentinel("InquiryHardwareModel", proto.CtrlIdentity, proto.CmdHardwareModel)
}

// InquiryFirmwareVersion queries the firmware version.
func (d *Driver) InquiryFirmwareVersion() error {
	return d.sendSentinel("InquiryFirmwareVersion", proto.CtrlIdentity, proto.CmdFirmwareVersion)
}

// InquiryInitStatus queries whether the module finished initializing.
func (d *Driver) InquiryInitStatus() error {
	return d.sendSentinel("InquiryInitStatus", proto.CtrlWorking, proto.CmdInitStatusGet)
}

// InquirySceneSet selects the detection scene preset.
func (d *Driver) InquirySceneSet(scene SceneMode) error {
	if scene > SceneAreaDetection {
		return NewError("InquirySceneSet", ErrCodeBadArgument, "unknown scene mode")
	}
	return d.send("InquirySceneSet", []byte{byte(scene)}, proto.CtrlWorking, proto.CmdSceneSet)
}

// InquirySceneGet queries the current scene preset.
func (d *Driver) InquirySceneGet() error {
	return d.sendSentinel("InquirySceneGet", proto.CtrlWorking, proto.CmdSceneGet)
}

// InquirySensitivitySet selects the detection sensitivity.
func (d *Driver) InquirySensitivitySet(level SensitivityLevel) error {
	if level < Sensitivity1 || level > Sensitivity3 {
		return NewError("InquirySensitivitySet", ErrCodeBadArgument, "unknown sensitivity level")
	}
	return d.send("InquirySensitivitySet", []byte{byte(level)}, proto.CtrlWorking, proto.CmdSensitivitySet)
}

// InquirySensitivityGet queries the current sensitivity.
func (d *Driver) InquirySensitivityGet() error {
	return d.sendSentinel("InquirySensitivityGet", proto.CtrlWorking, proto.CmdSensitivityGet)
}

// InquiryPresence queries the presence state. Standard mode only.
func (d *Driver) InquiryPresence() error {
	if err := d.requireNotMode("InquiryPresence", ModeUnderlyingOpen); err != nil {
		return err
	}
	return d.sendSentinel("InquiryPresence", proto.CtrlHuman, proto.CmdPresenceGet)
}

// InquiryMotion queries the motion state. Standard mode only.
func (d *Driver) InquiryMotion() error {
	if err := d.requireNotMode("InquiryMotion", ModeUnderlyingOpen); err != nil {
		return err
	}
	return d.sendSentinel("InquiryMotion", proto.CtrlHuman, proto.CmdMotionGet)
}

// InquiryBodyMovement queries the body movement parameter. Standard mode only.
func (d *Driver) InquiryBodyMovement() error {
	if err := d.requireNotMode("InquiryBodyMovement", ModeUnderlyingOpen); err != nil {
		return err
	}
	return d.sendSentinel("InquiryBodyMovement", proto.CtrlHuman, proto.CmdBodyMovementGet)
}

// InquiryTimeForNoPersonSet selects the no-person delay preset.
// Standard mode only.
func (d *Driver) InquiryTimeForNoPersonSet(t TimeForNoPerson) error {
	if err := d.requireNotMode("InquiryTimeForNoPersonSet", ModeUnderlyingOpen); err != nil {
		return err
	}
	if t > NoPersonTime60min {
		return NewError("InquiryTimeForNoPersonSet", ErrCodeBadArgument, "unknown no-person time preset")
	}
	return d.send("InquiryTimeForNoPersonSet", []byte{byte(t)}, proto.CtrlHuman, proto.CmdTimeForNoPersonSet)
}

// InquiryTimeForNoPersonGet queries the no-person delay preset.
// Standard mode only.
func (d *Driver) InquiryTimeForNoPersonGet() error {
	if err := d.requireNotMode("InquiryTimeForNoPersonGet", ModeUnderlyingOpen); err != nil {
		return err
	}
	return d.sendSentinel("InquiryTimeForNoPersonGet", proto.CtrlHuman, proto.CmdTimeForNoPersonGet)
}

// InquiryProximity queries the proximity state. Standard mode only.
func (d *Driver) InquiryProximity() error {
	if err := d.requireNotMode("InquiryProximity", ModeUnderlyingOpen); err != nil {
		return err
	}
	return d.sendSentinel("InquiryProximity", proto.CtrlHuman, proto.CmdProximityGet)
}

// InquiryUofOutputSwitchSet turns underlying open function reporting on
// or off. The driver's operating mode follows the switch.
func (d *Driver) InquiryUofOutputSwitchSet(sw OutputSwitch) error {
	if sw != OutputOff && sw != OutputOn {
		return NewError("InquiryUofOutputSwitchSet", ErrCodeBadArgument, "unknown switch value")
	}
	if d.state != StateRunning {
		return NewError("InquiryUofOutputSwitchSet", ErrCodeInvalidState, "driver not running")
	}
	if sw == OutputOn {
		d.mode.Store(int32(ModeUnderlyingOpen))
	} else {
		d.mode.Store(int32(ModeStandard))
	}
	return d.send("InquiryUofOutputSwitchSet", []byte{byte(sw)}, proto.CtrlUof, proto.CmdUofSwitchSet)
}

// InquiryUofOutputSwitchGet queries the output switch state.
func (d *Driver) InquiryUofOutputSwitchGet() error {
	return d.sendSentinel("InquiryUofOutputSwitchGet", proto.CtrlUof, proto.CmdUofSwitchGet)
}

// InquiryExistenceEnergy queries the existence energy value.
// Underlying-open mode only.
func (d *Driver) InquiryExistenceEnergy() error {
	if err := d.requireNotMode("InquiryExistenceEnergy", ModeStandard); err != nil {
		return err
	}
	return d.sendSentinel("InquiryExistenceEnergy", proto.CtrlUof, proto.CmdUofExistenceEnergyGet)
}

// InquiryMotionEnergy queries the motion energy value.
// Underlying-open mode only.
func (d *Driver) InquiryMotionEnergy() error {
	if err := d.requireNotMode("InquiryMotionEnergy", ModeStandard); err != nil {
		return err
	}
	return d.sendSentinel("InquiryMotionEnergy", proto.CtrlUof, proto.CmdUofMotionEnergyGet)
}

// InquiryStaticDistance queries the static body distance.
// Underlying-open mode only.
func (d *Driver) InquiryStaticDistance() error {
	if err := d.requireNotMode("InquiryStaticDistance", ModeStandard); err != nil {
		return err
	}
	return d.sendSentinel("InquiryStaticDistance", proto.CtrlUof, proto.CmdUofStaticDistanceGet)
}

// InquiryMotionDistance queries the moving body distance.
// Underlying-open mode only.
func (d *Driver) InquiryMotionDistance() error {
	if err := d.requireNotMode("InquiryMotionDistance", ModeStandard); err != nil {
		return err
	}
	return d.sendSentinel("InquiryMotionDistance", proto.CtrlUof, proto.CmdUofMotionDistanceGet)
}

// InquiryMotionSpeed queries the moving body speed.
// Underlying-open mode only.
func (d *Driver) InquiryMotionSpeed() error {
	if err := d.requireNotMode("InquiryMotionSpeed", ModeStandard); err != nil {
		return err
	}
	return d.sendSentinel("InquiryMotionSpeed", proto.CtrlUof, proto.CmdUofMotionSpeedGet)
}

// InquiryCustomModeSet opens one of the four custom parameter sets for
// editing. Underlying-open mode only.
func (d *Driver) InquiryCustomModeSet(mode CustomMode) error {
	if err := d.requireNotMode("InquiryCustomModeSet", ModeStandard); err != nil {
		return err
	}
	if mode < CustomMode1 || mode > CustomMode4 {
		return NewError("InquiryCustomModeSet", ErrCodeBadArgument, "unknown custom mode")
	}
	return d.send("InquiryCustomModeSet", []byte{byte(mode)}, proto.CtrlWorking, proto.CmdCustomModeSet)
}

// InquiryCustomModeGet queries the active custom mode.
// Underlying-open mode only.
func (d *Driver) InquiryCustomModeGet() error {
	if err := d.requireNotMode("InquiryCustomModeGet", ModeStandard); err != nil {
		return err
	}
	return d.sendSentinel("InquiryCustomModeGet", proto.CtrlWorking, proto.CmdCustomModeGet)
}

// InquiryCustomModeEnd stores the edited custom parameters and leaves
// custom-mode editing. Underlying-open mode only.
func (d *Driver) InquiryCustomModeEnd() error {
	if err := d.requireNotMode("InquiryCustomModeEnd", ModeStandard); err != nil {
		return err
	}
	return d.sendSentinel("InquiryCustomModeEnd", proto.CtrlWorking, proto.CmdCustomModeEnd)
}

// InquiryExistenceThreshSet sets the existence judgement threshold,
// 0 to 250. Underlying-open mode only.
func (d *Driver) InquiryExistenceThreshSet(thresh int) error {
	if err := d.requireNotMode("InquiryExistenceThreshSet", ModeStandard); err != nil {
		return err
	}
	if thresh < 0 || thresh > 250 {
		return NewError("InquiryExistenceThreshSet", ErrCodeBadArgument, "threshold outside [0,250]")
	}
	return d.send("InquiryExistenceThreshSet", []byte{byte(thresh)}, proto.CtrlUof, proto.CmdCmExistenceThreshSet)
}

// InquiryExistenceThreshGet queries the existence judgement threshold.
// Underlying-open mode only.
func (d *Driver) InquiryExistenceThreshGet() error {
	if err := d.requireNotMode("InquiryExistenceThreshGet", ModeStandard); err != nil {
		return err
	}
	return d.sendSentinel("InquiryExistenceThreshGet", proto.CtrlUof, proto.CmdCmExistenceThreshGet)
}

// InquiryMotionThreshSet sets the motion trigger threshold, 0 to 250.
// Underlying-open mode only.
func (d *Driver) InquiryMotionThreshSet(thresh int) error {
	if err := d.requireNotMode("InquiryMotionThreshSet", ModeStandard); err != nil {
		return err
	}
	if thresh < 0 || thresh > 250 {
		return NewError("InquiryMotionThreshSet", ErrCodeBadArgument, "threshold outside [0,250]")
	}
	return d.send("InquiryMotionThreshSet", []byte{byte(thresh)}, proto.CtrlUof, proto.CmdCmMotionThreshSet)
}

// InquiryMotionThreshGet queries the motion trigger threshold.
// Underlying-open mode only.
func (d *Driver) InquiryMotionThreshGet() error {
	if err := d.requireNotMode("InquiryMotionThreshGet", ModeStandard); err != nil {
		return err
	}
	return d.sendSentinel("InquiryMotionThreshGet", proto.CtrlUof, proto.CmdCmMotionThreshGet)
}

// InquiryExistenceBoundSet sets the existence perception boundary.
// Underlying-open mode only.
func (d *Driver) InquiryExistenceBoundSet(bound ExistencePerceptionBound) error {
	if err := d.requireNotMode("InquiryExistenceBoundSet", ModeStandard); err != nil {
		return err
	}
	if bound < EPHalfMeter || bound > EPFiveMeters {
		return NewError("InquiryExistenceBoundSet", ErrCodeBadArgument, "unknown existence perception boundary")
	}
	return d.send("InquiryExistenceBoundSet", []byte{byte(bound)}, proto.CtrlUof, proto.CmdCmExistenceBoundSet)
}

// InquiryExistenceBoundGet queries the existence perception boundary.
// Underlying-open mode only.
func (d *Driver) InquiryExistenceBoundGet() error {
	if err := d.requireNotMode("InquiryExistenceBoundGet", ModeStandard); err != nil {
		return err
	}
	return d.sendSentinel("InquiryExistenceBoundGet", proto.CtrlUof, proto.CmdCmExistenceBoundGet)
}

// InquiryMotionBoundSet sets the motion trigger boundary.
// Underlying-open mode only.
func (d *Driver) InquiryMotionBoundSet(bound MotionTriggerBound) error {
	if err := d.requireNotMode("InquiryMotionBoundSet", ModeStandard); err != nil {
		return err
	}
	if bound < MTHalfMeter || bound > MTFiveMeters {
		return NewError("InquiryMotionBoundSet", ErrCodeBadArgument, "unknown motion trigger boundary")
	}
	return d.send("InquiryMotionBoundSet", []byte{byte(bound)}, proto.CtrlUof, proto.CmdCmMotionBoundSet)
}

// InquiryMotionBoundGet queries the motion trigger boundary.
// Underlying-open mode only.
func (d *Driver) InquiryMotionBoundGet() error {
	if err := d.requireNotMode("InquiryMotionBoundGet", ModeStandard); err != nil {
		return err
	}
	return d.sendSentinel("InquiryMotionBoundGet", proto.CtrlUof, proto.CmdCmMotionBoundGet)
}

// InquiryMotionTriggerTimeSet sets the motion trigger time, 0 to 1000 ms.
// Underlying-open mode only.
func (d *Driver) InquiryMotionTriggerTimeSet(ms int) error {
	if err := d.requireNotMode("InquiryMotionTriggerTimeSet", ModeStandard); err != nil {
		return err
	}
	if ms < 0 || ms > 1000 {
		return NewError("InquiryMotionTriggerTimeSet", ErrCodeBadArgument, "time outside [0,1000] ms")
	}
	return d.send("InquiryMotionTriggerTimeSet", beUint32(ms), proto.CtrlUof, proto.CmdCmMotionTriggerTimeSet)
}

// InquiryMotionTriggerTimeGet queries the motion trigger time.
// Underlying-open mode only.
func (d *Driver) InquiryMotionTriggerTimeGet() error {
	if err := d.requireNotMode("InquiryMotionTriggerTimeGet", ModeStandard); err != nil {
		return err
	}
	return d.sendSentinel("InquiryMotionTriggerTimeGet", proto.CtrlUof, proto.CmdCmMotionTriggerTimeGet)
}

// InquiryMotionToStillTimeSet sets the motion-to-still time,
// 1000 to 60000 ms. Underlying-open mode only.
func (d *Driver) InquiryMotionToStillTimeSet(ms int) error {
	if err := d.requireNotMode("InquiryMotionToStillTimeSet", ModeStandard); err != nil {
		return err
	}
	if ms < 1000 || ms > 60000 {
		return NewError("InquiryMotionToStillTimeSet", ErrCodeBadArgument, "time outside [1000,60000] ms")
	}
	return d.send("InquiryMotionToStillTimeSet", beUint32(ms), proto.CtrlUof, proto.CmdCmMotionToStillTimeSet)
}

// InquiryMotionToStillTimeGet queries the motion-to-still time.
// Underlying-open mode only.
func (d *Driver) InquiryMotionToStillTimeGet() error {
	if err := d.requireNotMode("InquiryMotionToStillTimeGet", ModeStandard); err != nil {
		return err
	}
	return d.sendSentinel("InquiryMotionToStillTimeGet", proto.CtrlUof, proto.CmdCmMotionToStillTimeGet)
}

// InquiryCmTimeForNoPersonSet sets the custom-mode no-person time,
// 0 to 3600000 ms. Underlying-open mode only.
func (d *Driver) InquiryCmTimeForNoPersonSet(ms int) error {
	if err := d.requireNotMode("InquiryCmTimeForNoPersonSet", ModeStandard); err != nil {
		return err
	}
	if ms < 0 || ms > 3600000 {
		return NewError("InquiryCmTimeForNoPersonSet", ErrCodeBadArgument, "time outside [0,3600000] ms")
	}
	return d.send("InquiryCmTimeForNoPersonSet", beUint32(ms), proto.CtrlUof, proto.CmdCmTimeForNoPersonSet)
}

// InquiryCmTimeForNoPersonGet queries the custom-mode no-person time.
// Underlying-open mode only.
func (d *Driver) InquiryCmTimeForNoPersonGet() error {
	if err := d.requireNotMode("InquiryCmTimeForNoPersonGet", ModeStandard); err != nil {
		return err
	}
	return d.sendSentinel("InquiryCmTimeForNoPersonGet", proto.CtrlUof, proto.CmdCmTimeForNoPersonGet)
}

func beUint32(v int) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(v))
	return buf
}
