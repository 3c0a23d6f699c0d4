package pos

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaleDecodesLegacyVocabulary(t *testing.T) {
	var sale Sale
	payload := `{"id":"s1","status":"PAID","clientId":null,"items":[{"id":"i1","description":"x","qty":2,"unitPrice":"500.50"}],"payments":[],"subtotal":"1001","total":1001,"balance":0}`
	require.NoError(t, json.Unmarshal([]byte(payload), &sale))
	require.Equal(t, StatusConfirmed, sale.Status)
	require.Nil(t, sale.ClientID)
	require.True(t, sale.Items[0].LineTotal().Equal(dec("1001")))

	require.Equal(t, StatusDraft, NormalizeStatus("open"))
	require.Equal(t, StatusCancelled, NormalizeStatus("CANCELED"))
	require.True(t, StatusCancelled.Closed())
	require.False(t, StatusDraft.Closed())
}

func TestDecodeAddItemShapes(t *testing.T) {
	res, err := decodeAddItem(json.RawMessage(`{"id":"i1","description":"x","qty":1,"unitPrice":10,"total":10}`))
	require.NoError(t, err)
	require.NotNil(t, res.Item)
	require.Nil(t, res.Sale)

	res, err = decodeAddItem(json.RawMessage(`{"id":"s1","status":"DRAFT","items":[{"id":"i1","qty":1,"unitPrice":10}],"total":10,"balance":10}`))
	require.NoError(t, err)
	require.NotNil(t, res.Sale)
	require.Len(t, res.Sale.Items, 1)

	_, err = decodeAddItem(nil)
	require.Error(t, err)
}

func TestPaymentMethodLabels(t *testing.T) {
	require.Equal(t, "Efectivo", MethodCash.Label())
	require.Equal(t, "Transferencia", MethodTransfer.Label())
	require.Equal(t, "Tarjeta", MethodCard.Label())
	require.False(t, PaymentMethod("CHEQUE").Valid())
}
