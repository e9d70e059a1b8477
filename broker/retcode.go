package broker

// Trade retcodes mirror the external terminal's numeric convention so that
// strategy code checking them is portable between live and simulated modes.
const (
	RetcodeReject         = 10006
	RetcodeDone           = 10009
	RetcodeInvalidRequest = 10013
	RetcodeInvalidVolume  = 10014
	RetcodeInvalidPrice   = 10015
	RetcodeInvalidStops   = 10016
	RetcodeMarketClosed   = 10018
	RetcodeNoMoney        = 10019
	RetcodeInvalidFill    = 10030
)

// RetcodeText returns a short human-readable label for a retcode.
func RetcodeText(code int) string {
	switch code {
	case RetcodeReject:
		return "rejected"
	case RetcodeDone:
		return "done"
	case RetcodeInvalidRequest:
		return "invalid request"
	case RetcodeInvalidVolume:
		return "invalid volume"
	case RetcodeInvalidPrice:
		return "invalid price"
	case RetcodeInvalidStops:
		return "invalid stops"
	case RetcodeMarketClosed:
		return "market closed"
	case RetcodeNoMoney:
		return "not enough money"
	case RetcodeInvalidFill:
		return "invalid fill"
	default:
		return "unknown"
	}
}
