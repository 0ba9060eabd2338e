package mmwave

import "github.com/behrlich/go-mmwave/internal/proto"

// The semantic decoder maps a frame's (ctrl, cmd, payload) triple onto a
// typed Report or Response. Dispatch is data-driven; an unrecognised
// (ctrl, cmd) pair carries no meaning and is dropped, as is any frame
// whose payload length disagrees with the table.

// uofStaticDistance converts a static distance code to metres.
// Codes run 0x01..0x06 in half-metre steps from 0.5 to 3.0.
var uofStaticDistance = [...]float32{
	0x01: 0.5,
	0x02: 1.0,
	0x03: 1.5,
	0x04: 2.0,
	0x05: 2.5,
	0x06: 3.0,
}

// uofMotionDistance converts a motion distance code to metres.
// Codes run 0x01..0x08 in half-metre steps from 0.5 to 4.0.
var uofMotionDistance = [...]float32{
	0x01: 0.5,
	0x02: 1.0,
	0x03: 1.5,
	0x04: 2.0,
	0x05: 2.5,
	0x06: 3.0,
	0x07: 3.5,
	0x08: 4.0,
}

// uofMotionSpeed converts a motion speed code to metres per second.
// Codes run 0x01..0x14 in half-metre-per-second steps from -4.5 to +5.0;
// 0x0A is standstill.
var uofMotionSpeed = [...]float32{
	0x01: -4.5,
	0x02: -4.0,
	0x03: -3.5,
	0x04: -3.0,
	0x05: -2.5,
	0x06: -2.0,
	0x07: -1.5,
	0x08: -1.0,
	0x09: -0.5,
	0x0A: 0,
	0x0B: 0.5,
	0x0C: 1.0,
	0x0D: 1.5,
	0x0E: 2.0,
	0x0F: 2.5,
	0x10: 3.0,
	0x11: 3.5,
	0x12: 4.0,
	0x13: 4.5,
	0x14: 5.0,
}

// responseSpec is one row of the response dispatch table.
type responseSpec struct {
	ctrl byte
	cmd  byte
	len  int
	typ  ResponseType
}

// responseSpecs is the full inquiry-reply table. The decoder drops a
// candidate response whose payload length disagrees with its row.
var responseSpecs = []responseSpec{
	{proto.CtrlSystem, proto.CmdHeartbeat, proto.LenSingleByte, ResponseHeartbeat},
	{proto.CtrlSystem, proto.CmdModuleReset, proto.LenSingleByte, ResponseModuleReset},
	{proto.CtrlIdentity, proto.CmdProductModel, proto.LenSingleByte, ResponseProductModel},
	{proto.CtrlIdentity, proto.CmdProductID, proto.LenSingleByte, ResponseProductID},
	{proto.CtrlIdentity, proto.CmdHardwareModel, proto.LenSingleByte, ResponseHardwareModel},
	{proto.CtrlIdentity, proto.CmdFirmwareVersion, proto.LenSingleByte, ResponseFirmwareVersion},
	{proto.CtrlWorking, proto.CmdInitStatusGet, proto.LenSingleByte, ResponseInitStatus},
	{proto.CtrlWorking, proto.CmdSceneSet, proto.LenSingleByte, ResponseSceneSet},
	{proto.CtrlWorking, proto.CmdSceneGet, proto.LenSingleByte, ResponseSceneGet},
	{proto.CtrlWorking, proto.CmdSensitivitySet, proto.LenSingleByte, ResponseSensitivitySet},
	{proto.CtrlWorking, proto.CmdSensitivityGet, proto.LenSingleByte, ResponseSensitivityGet},
	{proto.CtrlHuman, proto.CmdPresenceGet, proto.LenSingleByte, ResponsePresence},
	{proto.CtrlHuman, proto.CmdMotionGet, proto.LenSingleByte, ResponseMotion},
	{proto.CtrlHuman, proto.CmdBodyMovementGet, proto.LenSingleByte, ResponseBodyMovement},
	{proto.CtrlHuman, proto.CmdTimeForNoPersonSet, proto.LenSingleByte, ResponseTimeForNoPersonSet},
	{proto.CtrlHuman, proto.CmdTimeForNoPersonGet, proto.LenSingleByte, ResponseTimeForNoPersonGet},
	{proto.CtrlHuman, proto.CmdProximityGet, proto.LenSingleByte, ResponseProximity},
	{proto.CtrlUof, proto.CmdUofSwitchSet, proto.LenSingleByte, ResponseOutputSwitchSet},
	{proto.CtrlUof, proto.CmdUofSwitchGet, proto.LenSingleByte, ResponseOutputSwitchGet},
	{proto.CtrlUof, proto.CmdUofExistenceEnergyGet, proto.LenSingleByte, ResponseExistenceEnergy},
	{proto.CtrlUof, proto.CmdUofMotionEnergyGet, proto.LenSingleByte, ResponseMotionEnergy},
	{proto.CtrlUof, proto.CmdUofStaticDistanceGet, proto.LenSingleByte, ResponseStaticDistance},
	{proto.CtrlUof, proto.CmdUofMotionDistanceGet, proto.LenSingleByte, ResponseMotionDistance},
	{proto.CtrlUof, proto.CmdUofMotionSpeedGet, proto.LenSingleByte, ResponseMotionSpeed},
	{proto.CtrlWorking, proto.CmdCustomModeSet, proto.LenSingleByte, ResponseCustomModeSet},
	{proto.CtrlWorking, proto.CmdCustomModeEnd, proto.LenSingleByte, ResponseCustomModeEnd},
	{proto.CtrlWorking, proto.CmdCustomModeGet, proto.LenSingleByte, ResponseCustomModeGet},
	{proto.CtrlUof, proto.CmdCmExistenceThreshSet, proto.LenSingleByte, ResponseExistenceThreshSet},
	{proto.CtrlUof, proto.CmdCmExistenceThreshGet, proto.LenSingleByte, ResponseExistenceThreshGet},
	{proto.CtrlUof, proto.CmdCmMotionThreshSet, proto.LenSingleByte, ResponseMotionThreshSet},
	{proto.CtrlUof, proto.CmdCmMotionThreshGet, proto.LenSingleByte, ResponseMotionThreshGet},
	{proto.CtrlUof, proto.CmdCmExistenceBoundSet, proto.LenSingleByte, ResponseExistenceBoundSet},
	{proto.CtrlUof, proto.CmdCmExistenceBoundGet, proto.LenSingleByte, ResponseExistenceBoundGet},
	{proto.CtrlUof, proto.CmdCmMotionBoundSet, proto.LenSingleByte, ResponseMotionBoundSet},
	{proto.CtrlUof, proto.CmdCmMotionBoundGet, proto.LenSingleByte, ResponseMotionBoundGet},
	{proto.CtrlUof, proto.CmdCmMotionTriggerTimeSet, proto.LenCmTime, ResponseMotionTriggerTimeSet},
	{proto.CtrlUof, proto.CmdCmMotionTriggerTimeGet, proto.LenSingleByte, ResponseMotionTriggerTimeGet},
	{proto.CtrlUof, proto.CmdCmMotionToStillTimeSet, proto.LenCmTime, ResponseMotionToStillTimeSet},
	{proto.CtrlUof, proto.CmdCmMotionToStillTimeGet, proto.LenSingleByte, ResponseMotionToStillTimeGet},
	{proto.CtrlUof, proto.CmdCmTimeForNoPersonSet, proto.LenCmTime, ResponseCmTimeForNoPersonSet},
	{proto.CtrlUof, proto.CmdCmTimeForNoPersonGet, proto.LenSingleByte, ResponseCmTimeForNoPersonGet},
}

// responseIndex keys responseSpecs by (ctrl, cmd) for dispatch.
var responseIndex = func() map[uint16]responseSpec {
	m := make(map[uint16]responseSpec, len(responseSpecs))
	for _, rs := range responseSpecs {
		m[uint16(rs.ctrl)<<8|uint16(rs.cmd)] = rs
	}
	return m
}()

// decodeFrame interprets one semantic frame (frame[0]=ctrl, frame[1]=cmd,
// frame[2:]=payload) and delivers the result through onReport/onResponse.
func (d *Driver) decodeFrame(frame []byte) {
	if len(frame) < 2 {
		return
	}
	ctrl := frame[0]
	cmd := frame[1]
	payload := frame[2:]

	d.decodeReport(ctrl, cmd, payload)
	d.decodeResponse(ctrl, cmd, payload)
}

func (d *Driver) decodeReport(ctrl, cmd byte, payload []byte) {
	switch ctrl {
	case proto.CtrlWorking:
		if cmd == proto.CmdInitCompleted && len(payload) == proto.LenSingleByte {
			d.onReport(Report{Kind: ReportInitCompleted, InitCompleted: true})
		}
	case proto.CtrlHuman:
		switch cmd {
		case proto.CmdPresenceReport:
			if len(payload) == proto.LenSingleByte && payload[0] <= byte(Occupied) {
				d.onReport(Report{Kind: ReportPresence, Presence: PresenceState(payload[0])})
			}
		case proto.CmdMotionReport:
			if len(payload) == proto.LenSingleByte && payload[0] <= byte(MotionActive) {
				d.onReport(Report{Kind: ReportMotion, Motion: MotionState(payload[0])})
			}
		case proto.CmdBodyMovementReport:
			if len(payload) == proto.LenSingleByte {
				d.onReport(Report{Kind: ReportBodyMovement, BodyMovement: payload[0]})
			}
		case proto.CmdProximityReport:
			if len(payload) == proto.LenSingleByte && payload[0] <= byte(ProximityFar) {
				d.onReport(Report{Kind: ReportProximity, Proximity: ProximityState(payload[0])})
			}
		}
	case proto.CtrlUof:
		if cmd == proto.CmdUofReport && len(payload) == proto.LenUofReport {
			d.onReport(Report{Kind: ReportUof, Uof: decodeUofReport(payload)})
		}
	}
}

// decodeUofReport unpacks the five-byte composite telemetry payload:
// existence energy, static distance code, motion energy, motion distance
// code, motion speed code. Codes outside the tables leave the zero value.
func decodeUofReport(payload []byte) UofReport {
	rep := UofReport{
		ExistenceEnergy: payload[0],
		MotionEnergy:    payload[2],
	}
	if c := int(payload[1]); c < len(uofStaticDistance) {
		rep.StaticDistance = uofStaticDistance[c]
	}
	if c := int(payload[3]); c < len(uofMotionDistance) {
		rep.MotionDistance = uofMotionDistance[c]
	}
	if c := int(payload[4]); c < len(uofMotionSpeed) {
		rep.MotionSpeed = uofMotionSpeed[c]
	}
	return rep
}

func (d *Driver) decodeResponse(ctrl, cmd byte, payload []byte) {
	rs, ok := responseIndex[uint16(ctrl)<<8|uint16(cmd)]
	if !ok {
		return
	}
	if len(payload) != rs.len || len(payload) > MaxResponseDataLen {
		if d.observer != nil {
			d.observer.ObserveFrameDropped(DropReasonLength)
		}
		return
	}
	data := make([]byte, len(payload))
	copy(data, payload)
	d.onResponse(Response{Type: rs.typ, Data: data})
}
