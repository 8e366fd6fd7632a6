package ovhsoap

import "encoding/xml"

type requestEnvelope struct {
	XMLName xml.Name    `xml:"soap:Envelope"`
	SoapNS  string      `xml:"xmlns:soap,attr"`
	XsiNS   string      `xml:"xmlns:xsi,attr"`
	XsdNS   string      `xml:"xmlns:xsd,attr"`
	Body    requestBody `xml:"soap:Body"`
}

type requestBody struct {
	Call smsUserSend `xml:"telephonySmsUserSend"`
}

type smsUserSend struct {
	NS          string     `xml:"xmlns,attr"`
	Login       typedValue `xml:"login"`
	Password    typedValue `xml:"password"`
	SmsAccount  typedValue `xml:"smsAccount"`
	NumberFrom  typedValue `xml:"numberFrom"`
	NumberTo    typedValue `xml:"numberTo"`
	Message     typedValue `xml:"message"`
	SmsValidity typedValue `xml:"smsValidity"`
	SmsClass    typedValue `xml:"smsClass"`
	SmsDeferred typedValue `xml:"smsDeferred"`
	SmsPriority typedValue `xml:"smsPriority"`
	SmsCoding   typedValue `xml:"smsCoding"`
	Tag         typedValue `xml:"tag"`
	NoStop      typedValue `xml:"noStop"`
}

// typedValue is an RPC/encoded parameter carrying its xsi:type.
type typedValue struct {
	Type  string `xml:"xsi:type,attr"`
	Value string `xml:",chardata"`
}

func typed(t, v string) typedValue { return typedValue{Type: t, Value: v} }

type responseEnvelope struct {
	XMLName xml.Name     `xml:"Envelope"`
	Body    responseBody `xml:"Body"`
}

type responseBody struct {
	Fault *soapFault `xml:"Fault"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}
