// Package proto defines the on-wire protocol of the mmWave presence
// radar: frame delimiters and the control/command word table. It is the
// single source of truth for every (ctrl, cmd) pair the module speaks.
package proto

// Frame delimiters and layout.
const (
	Header1 = 0x53
	Header2 = 0x59
	Footer1 = 0x54
	Footer2 = 0x43

	// FrameOverhead is the number of non-payload bytes in a frame:
	// two header bytes, ctrl, cmd, two length bytes, checksum, two footer bytes.
	FrameOverhead = 9

	// InquirySentinel is the fixed payload byte carried by parameterless inquiries.
	InquirySentinel = 0x0F

	// MaxResponseDataLen bounds the payload copied into a decoded response.
	MaxResponseDataLen = 64
)

// Control words group commands by function class.
const (
	CtrlSystem   = 0x01 // heartbeat, module reset
	CtrlIdentity = 0x02 // product / hardware / firmware identity
	CtrlUpgrade  = 0x03 // UART firmware upgrade (reserved, not implemented)
	CtrlWorking  = 0x05 // working status: init, scene, sensitivity, custom mode
	CtrlUof      = 0x08 // underlying open function
	CtrlHuman    = 0x80 // human presence reports and inquiries
)

// System class (ctrl 0x01).
const (
	CmdHeartbeat   = 0x01
	CmdModuleReset = 0x02
)

// Identity class (ctrl 0x02).
const (
	CmdProductModel    = 0xA1
	CmdProductID       = 0xA2
	CmdHardwareModel   = 0xA3
	CmdFirmwareVersion = 0xA4
)

// Upgrade class (ctrl 0x03). Reserved for the module's UART upgrade
// procedure; the driver does not implement it.
const (
	CmdUpgradeStart   = 0x01
	CmdUpgradePackage = 0x02
	CmdUpgradeEnd     = 0x03
)

// Working status class (ctrl 0x05).
const (
	CmdInitCompleted  = 0x01
	CmdSceneSet       = 0x07
	CmdSensitivitySet = 0x08
	CmdCustomModeSet  = 0x09
	CmdCustomModeEnd  = 0x0A
	CmdInitStatusGet  = 0x81
	CmdSceneGet       = 0x87
	CmdSensitivityGet = 0x88
	CmdCustomModeGet  = 0x89
)

// Human presence class (ctrl 0x80).
const (
	CmdPresenceReport     = 0x01
	CmdMotionReport       = 0x02
	CmdBodyMovementReport = 0x03
	CmdTimeForNoPersonSet = 0x0A
	CmdProximityReport    = 0x0B
	CmdPresenceGet        = 0x81
	CmdMotionGet          = 0x82
	CmdBodyMovementGet    = 0x83
	CmdTimeForNoPersonGet = 0x8A
	CmdProximityGet       = 0x8B
)

// Underlying open function class (ctrl 0x08). The low set commands double
// as the custom-mode parameter writes; the 0x8x commands are their
// inquiries.
const (
	CmdUofSwitchSet           = 0x00
	CmdUofReport              = 0x01
	CmdCmExistenceThreshSet   = 0x08
	CmdCmMotionThreshSet      = 0x09
	CmdCmExistenceBoundSet    = 0x0A
	CmdCmMotionBoundSet       = 0x0B
	CmdCmMotionTriggerTimeSet = 0x0C
	CmdCmMotionToStillTimeSet = 0x0D
	CmdCmTimeForNoPersonSet   = 0x0E
	CmdUofSwitchGet           = 0x80
	CmdUofExistenceEnergyGet  = 0x81
	CmdUofMotionEnergyGet     = 0x82
	CmdUofStaticDistanceGet   = 0x83
	CmdUofMotionDistanceGet   = 0x84
	CmdUofMotionSpeedGet      = 0x85
	CmdCmExistenceThreshGet   = 0x88
	CmdCmMotionThreshGet      = 0x89
	CmdCmExistenceBoundGet    = 0x8A
	CmdCmMotionBoundGet       = 0x8B
	CmdCmMotionTriggerTimeGet = 0x8C
	CmdCmMotionToStillTimeGet = 0x8D
	CmdCmTimeForNoPersonGet   = 0x8E
)

// Payload lengths of the fixed-size frames.
const (
	LenSingleByte = 1
	LenUofReport  = 5
	LenCmTime     = 4
)
