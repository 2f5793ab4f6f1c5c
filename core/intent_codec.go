package core

import (
	"encoding/binary"
	"fmt"
)

// encodeIntentList serializes an IntentList as a length-prefixed list of
// (type-id, data) pairs, the payload the predicate-registry contract
// stores verbatim.
func encodeIntentList(intents IntentList) ([]byte, error) {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, uint32(len(intents)))
	for _, it := range intents {
		if len(it.TypeID) > 255 {
			return nil, fmt.Errorf("intent type id too long: %q", it.TypeID)
		}
		out = append(out, byte(len(it.TypeID)))
		out = append(out, it.TypeID...)
		var dataLen [4]byte
		binary.BigEndian.PutUint32(dataLen[:], uint32(len(it.Data)))
		out = append(out, dataLen[:]...)
		out = append(out, it.Data...)
	}
	return out, nil
}

func decodeIntentList(raw []byte) (IntentList, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("intent list: truncated header")
	}
	count := binary.BigEndian.Uint32(raw[:4])
	raw = raw[4:]
	out := make(IntentList, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(raw) < 1 {
			return nil, fmt.Errorf("intent list: truncated entry %d", i)
		}
		typeLen := int(raw[0])
		raw = raw[1:]
		if len(raw) < typeLen+4 {
			return nil, fmt.Errorf("intent list: truncated entry %d", i)
		}
		typeID := string(raw[:typeLen])
		raw = raw[typeLen:]
		dataLen := binary.BigEndian.Uint32(raw[:4])
		raw = raw[4:]
		if uint32(len(raw)) < dataLen {
			return nil, fmt.Errorf("intent list: truncated entry %d data", i)
		}
		data := make([]byte, dataLen)
		copy(data, raw[:dataLen])
		raw = raw[dataLen:]
		out = append(out, Intent{TypeID: typeID, Data: data})
	}
	return out, nil
}
