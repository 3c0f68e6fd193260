// AMF0 command messages: connect / createStream / play / pause / seek and
// their _result/_error/onStatus responses. On the wire a command message
// body is simply a sequence of AMF0-encoded values, not a wrapped array:
// [String name, Number transactionId, ...values].

package rtmp

// command is a decoded or to-be-encoded AMF0 command message.
type command struct {
	name          string
	transactionID float64
	rest          []*AMF0Value
}

func encodeCommand(name string, transactionID float64, rest ...*AMF0Value) []byte {
	out := amf0EncodeOne(newAMF0String(name))
	out = append(out, amf0EncodeOne(newAMF0Number(transactionID))...)
	for _, v := range rest {
		out = append(out, amf0EncodeOne(v)...)
	}
	return out
}

func decodeCommand(payload []byte) (*command, error) {
	s := &amfDecodeStream{buffer: payload}

	nameVal, err := s.readOne()
	if err != nil {
		return nil, &AmfDecodeError{Reason: "missing command name: " + err.Error()}
	}

	tidVal, err := s.readOne()
	if err != nil {
		return nil, &AmfDecodeError{Reason: "missing transaction id: " + err.Error()}
	}

	rest := make([]*AMF0Value, 0, 2)
	for !s.isEnded() {
		v, err := s.readOne()
		if err != nil {
			break
		}
		rest = append(rest, v)
	}

	return &command{
		name:          nameVal.GetString(),
		transactionID: tidVal.GetDouble(),
		rest:          rest,
	}, nil
}

// at returns rest[i], or an AMF0 undefined if out of range.
func (c *command) at(i int) *AMF0Value {
	if i < 0 || i >= len(c.rest) {
		return newAMF0Undefined()
	}
	return c.rest[i]
}

// NewConnectObject builds the AMF0 command object Connect expects: "type"
// (required, consumed by Connect and never sent on the wire) plus the
// standard "app"/"tcUrl"/"flashVer" connect properties.
func NewConnectObject(app string, tcUrl string) *AMF0Value {
	obj := newAMF0Object()
	obj.objVal["type"] = newAMF0String("connect")
	obj.objVal["app"] = newAMF0String(app)
	obj.objVal["flashVer"] = newAMF0String("FMLE/3.0 (compatible; rtmpclient)")
	obj.objVal["tcUrl"] = newAMF0String(tcUrl)
	return obj
}

func buildConnectCommand(connectObject *AMF0Value) []byte {
	return encodeCommand("connect", 1, connectObject)
}

func buildCreateStreamCommand(transactionID float64) []byte {
	return encodeCommand("createStream", transactionID, newAMF0Null())
}

func buildPlayCommand(name string, start float64, duration float64) []byte {
	return encodeCommand("play", 0, newAMF0Null(), newAMF0String(name), newAMF0Number(start), newAMF0Number(duration))
}

func buildPauseCommand(pause bool, ms float64) []byte {
	return encodeCommand("pause", 0, newAMF0Null(), newAMF0Bool(pause), newAMF0Number(ms))
}

func buildSeekCommand(ms float64) []byte {
	return encodeCommand("seek", 0, newAMF0Null(), newAMF0Number(ms))
}
